package routernode

import (
	"strings"
)

func FinalizeReply(in *GraphState) (GraphOutput, error) {
	if in == nil {
		return GraphOutput{}, nilStateErr()
	}

	reply := strings.TrimSpace(in.Reply)
	if reply == "" {
		reply = TechnicalErrorReply
	}
	return GraphOutput{Text: reply}, nil
}
