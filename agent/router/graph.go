package router

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/compose"

	nodex "github.com/tanpawarit/neemo/agent/nodes"
)

func (r *Router) compileHandleMessageGraph(
	ctx context.Context,
) (compose.Runnable[nodex.GraphInput, nodex.GraphOutput], error) {
	graph := compose.NewGraph[nodex.GraphInput, nodex.GraphOutput]()

	if err := graph.AddLambdaNode("normalize",
		compose.InvokableLambda(func(ctx context.Context, in nodex.GraphInput) (*nodex.GraphState, error) {
			return nodex.Normalize(ctx, in, r.now)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node normalize: %w", err)
	}

	if err := graph.AddLambdaNode("resolve_shops",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.ResolveShops(ctx, in, r.deps.Directory, r.cfg.OnboardingURL)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node resolve_shops: %w", err)
	}

	if err := graph.AddLambdaNode("select_shop",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.SelectShop(ctx, in, r.deps.Sessions)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node select_shop: %w", err)
	}

	if err := graph.AddLambdaNode("extract_command",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.ExtractCommand(ctx, in, r.deps.Transcriber, r.deps.Images, r.cfg.ImageMode)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node extract_command: %w", err)
	}

	if err := graph.AddLambdaNode("classify_intent",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.ClassifyIntent(ctx, in, r.deps.Classifier)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node classify_intent: %w", err)
	}

	if err := graph.AddLambdaNode("execute_command",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.ExecuteCommand(ctx, in, r.deps.Executor)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node execute_command: %w", err)
	}

	if err := graph.AddLambdaNode("touch_session",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.TouchSession(ctx, in, r.deps.Sessions)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node touch_session: %w", err)
	}

	if err := graph.AddLambdaNode("finalize_reply",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (nodex.GraphOutput, error) {
			return nodex.FinalizeReply(in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node finalize_reply: %w", err)
	}

	edges := [][2]string{
		{compose.START, "normalize"},
		{"normalize", "resolve_shops"},
		{"resolve_shops", "select_shop"},
		{"select_shop", "extract_command"},
		{"extract_command", "classify_intent"},
		{"classify_intent", "execute_command"},
		{"execute_command", "touch_session"},
		{"touch_session", "finalize_reply"},
		{"finalize_reply", compose.END},
	}

	for _, edge := range edges {
		if err := graph.AddEdge(edge[0], edge[1]); err != nil {
			return nil, fmt.Errorf("add edge %s->%s: %w", edge[0], edge[1], err)
		}
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName("router.handle_message"))
	if err != nil {
		return nil, fmt.Errorf("compile router graph: %w", err)
	}
	return runner, nil
}
