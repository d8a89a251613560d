package state

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	contractx "github.com/tanpawarit/neemo/agent/contract"
)

var ErrInvalidSession = errors.New("session phone is empty")

const (
	defaultStoreKeyPrefix = "neemo:session:"
	maxResponseSizeBytes  = 1 << 20
)

var _ contractx.SessionStore = (*UpstashRedisStore)(nil)

// StoreOption customizes UpstashRedisStore.
type StoreOption func(*UpstashRedisStore)

func WithKeyPrefix(prefix string) StoreOption {
	return func(s *UpstashRedisStore) {
		trimmed := strings.TrimSpace(prefix)
		if trimmed != "" {
			s.keyPrefix = trimmed
		}
	}
}

// WithTTL sets a key expiry. Zero keeps sessions until an explicit reset.
func WithTTL(ttl time.Duration) StoreOption {
	return func(s *UpstashRedisStore) {
		s.ttl = ttl
	}
}

func WithHTTPClient(client *http.Client) StoreOption {
	return func(s *UpstashRedisStore) {
		if client != nil {
			s.httpClient = client
		}
	}
}

// UpstashRedisStore keeps one Redis hash per canonical phone number through
// the Upstash REST API. Fields are "slug" and "last_interaction".
type UpstashRedisStore struct {
	baseURL    string
	token      string
	httpClient *http.Client
	keyPrefix  string
	ttl        time.Duration
	now        func() time.Time
}

type restReply struct {
	Result json.RawMessage `json:"result"`
	Error  string          `json:"error"`
}

// touchScript refreshes last_interaction only when the hash still exists so
// a touch racing a reset cannot resurrect the session.
const touchScript = `if redis.call('EXISTS', KEYS[1]) == 0 then return 0 end
redis.call('HSET', KEYS[1], 'last_interaction', ARGV[1])
if tonumber(ARGV[2]) > 0 then redis.call('EXPIRE', KEYS[1], ARGV[2]) end
return 1`

type UpstashRedisConfig struct {
	URL     string        `envconfig:"URL" split_words:"true" required:"true"`
	Token   string        `envconfig:"TOKEN" split_words:"true" required:"true"`
	Timeout time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"10s"`
}

func NewUpstashRedisStore(cfg UpstashRedisConfig, opts ...StoreOption) (*UpstashRedisStore, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	if baseURL == "" {
		return nil, errors.New("upstash redis url is required")
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid redis rest url: %w", err)
	}

	token := strings.TrimSpace(cfg.Token)
	if token == "" {
		return nil, errors.New("upstash redis token is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	store := &UpstashRedisStore{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		keyPrefix: defaultStoreKeyPrefix,
		now:       time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(store)
		}
	}

	if store.ttl < 0 {
		return nil, errors.New("ttl must be >= 0")
	}

	return store, nil
}

// Load reads the whole session hash of phone.
func (s *UpstashRedisStore) Load(ctx context.Context, phone string) (*Session, error) {
	key, err := s.redisKey(phone)
	if err != nil {
		return nil, err
	}

	raw, err := s.do(ctx, "HGETALL", key)
	if err != nil {
		return nil, err
	}
	if isNull(raw) {
		return nil, contractx.ErrSessionNotFound
	}

	var flat []string
	if err := json.Unmarshal(raw, &flat); err != nil {
		return nil, fmt.Errorf("decode session hash: %w", err)
	}
	if len(flat) == 0 {
		return nil, contractx.ErrSessionNotFound
	}

	sess, err := sessionFromHash(phone, flat)
	if err != nil {
		return nil, fmt.Errorf("invalid session loaded from store: %w", err)
	}
	return sess, nil
}

func (s *UpstashRedisStore) GetActiveSlug(ctx context.Context, phone string) (string, error) {
	sess, err := s.Load(ctx, phone)
	if err != nil {
		return "", err
	}
	return sess.ActiveShopSlug, nil
}

func (s *UpstashRedisStore) SetActiveSlug(ctx context.Context, phone string, slug string) error {
	sess := NewSession(phone, slug, s.now())
	if err := sess.Validate(); err != nil {
		return err
	}
	key, err := s.redisKey(phone)
	if err != nil {
		return err
	}

	args := append([]any{"HSET", key}, sess.hashFields()...)
	if _, err := s.do(ctx, args...); err != nil {
		return err
	}
	if s.ttl > 0 {
		if _, err := s.do(ctx, "EXPIRE", key, ttlSeconds(s.ttl)); err != nil {
			return err
		}
	}
	return nil
}

func (s *UpstashRedisStore) ClearSession(ctx context.Context, phone string) error {
	key, err := s.redisKey(phone)
	if err != nil {
		return err
	}
	_, err = s.do(ctx, "DEL", key)
	return err
}

// Touch refreshes last_interaction of an existing session. A missing session
// stays absent.
func (s *UpstashRedisStore) Touch(ctx context.Context, phone string) error {
	key, err := s.redisKey(phone)
	if err != nil {
		return err
	}
	var ttl int64
	if s.ttl > 0 {
		ttl = ttlSeconds(s.ttl)
	}
	_, err = s.do(ctx, "EVAL", touchScript, 1, key, formatInteraction(s.now()), ttl)
	return err
}

func (s *UpstashRedisStore) redisKey(phone string) (string, error) {
	if strings.TrimSpace(phone) == "" {
		return "", ErrInvalidSession
	}
	prefix := strings.TrimSpace(s.keyPrefix)
	if prefix == "" {
		prefix = defaultStoreKeyPrefix
	}
	return prefix + phone, nil
}

// do sends one command to the REST endpoint and returns its raw result.
func (s *UpstashRedisStore) do(ctx context.Context, args ...any) (json.RawMessage, error) {
	if len(args) == 0 {
		return nil, errors.New("empty redis command")
	}

	body, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("marshal redis command: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build redis request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("redis %v: %w", args[0], err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSizeBytes))
	if err != nil {
		return nil, fmt.Errorf("read redis response: %w", err)
	}

	var reply restReply
	if err := json.Unmarshal(raw, &reply); err != nil {
		return nil, fmt.Errorf("redis %v: status=%d: decode response: %w", args[0], resp.StatusCode, err)
	}
	if reply.Error != "" {
		return nil, fmt.Errorf("redis %v: %s", args[0], reply.Error)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("redis %v: status=%d", args[0], resp.StatusCode)
	}
	return reply.Result, nil
}

func isNull(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) == 0 || bytes.Equal(raw, []byte("null"))
}

func ttlSeconds(ttl time.Duration) int64 {
	seconds := ttl / time.Second
	if seconds <= 0 {
		return 1
	}
	if ttl%time.Second != 0 {
		seconds++
	}
	return int64(seconds)
}
