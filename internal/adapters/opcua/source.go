package opcua

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gopcua/opcua"
	"github.com/gopcua/opcua/ua"

	"github.com/Anindya-Karmaker/openua-bioreactor/internal/ports"
)

// Config captures the runtime details required to open an OPC UA session.
type Config struct {
	Endpoint        string `yaml:"endpoint"`
	Username        string `yaml:"username"`
	Password        string `yaml:"password"`
	SecurityMode    string `yaml:"security_mode"`
	SecurityPolicy  string `yaml:"security_policy"`
	ApplicationName string `yaml:"application_name"`
}

func (c *Config) ApplyDefaults() {
	if c.SecurityMode == "" {
		c.SecurityMode = "None"
	}
	if c.SecurityPolicy == "" {
		c.SecurityPolicy = "None"
	}
	if c.ApplicationName == "" {
		c.ApplicationName = "OpenUA Bioreactor Logger"
	}
}

func (c *Config) Validate() error {
	if c.Endpoint == "" {
		return errors.New("endpoint is required")
	}
	return nil
}

// Source reads node values on demand over a single OPC UA session. It is the
// production ports.NodeSource; the poll loop drives the cadence.
type Source struct {
	cfg Config

	mu     sync.Mutex
	client *opcua.Client
	nodes  map[string]*ua.NodeID
}

func NewSource(cfg Config) (*Source, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Source{
		cfg:   cfg,
		nodes: make(map[string]*ua.NodeID),
	}, nil
}

func (s *Source) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client != nil {
		return fmt.Errorf("opcua source already connected")
	}

	opts := []opcua.Option{
		opcua.SecurityModeString(normalizeSecurityMode(s.cfg.SecurityMode)),
		opcua.SecurityPolicy(normalizeSecurityPolicy(s.cfg.SecurityPolicy)),
		opcua.ApplicationName(s.cfg.ApplicationName),
		opcua.AutoReconnect(true),
	}
	if s.cfg.Username != "" {
		opts = append(opts, opcua.AuthUsername(s.cfg.Username, s.cfg.Password))
	} else {
		opts = append(opts, opcua.AuthAnonymous())
	}

	client, err := opcua.NewClient(s.cfg.Endpoint, opts...)
	if err != nil {
		return fmt.Errorf("opcua new client: %w", err)
	}
	if err := client.Connect(ctx); err != nil {
		return fmt.Errorf("opcua connect: %w", err)
	}

	s.client = client
	return nil
}

func (s *Source) ReadNode(ctx context.Context, nodeID string) (float64, error) {
	s.mu.Lock()
	client := s.client
	id, ok := s.nodes[nodeID]
	s.mu.Unlock()

	if client == nil {
		return 0, fmt.Errorf("opcua source not connected")
	}
	if !ok {
		parsed, err := ua.ParseNodeID(nodeID)
		if err != nil {
			return 0, fmt.Errorf("parse node id %q: %w", nodeID, err)
		}
		id = parsed
		s.mu.Lock()
		s.nodes[nodeID] = id
		s.mu.Unlock()
	}

	req := &ua.ReadRequest{
		MaxAge:             0,
		TimestampsToReturn: ua.TimestampsToReturnNeither,
		NodesToRead: []*ua.ReadValueID{
			{NodeID: id, AttributeID: ua.AttributeIDValue},
		},
	}
	resp, err := client.Read(ctx, req)
	if err != nil {
		return 0, fmt.Errorf("read node %q: %w", nodeID, err)
	}
	if len(resp.Results) == 0 {
		return 0, fmt.Errorf("read node %q: empty result", nodeID)
	}
	dv := resp.Results[0]
	if dv.Status != ua.StatusOK {
		return 0, fmt.Errorf("read node %q: %s", nodeID, dv.Status)
	}
	fv, ok := variantToFloat(dv.Value)
	if !ok {
		return 0, fmt.Errorf("read node %q: unsupported value type", nodeID)
	}
	return fv, nil
}

func (s *Source) Disconnect(ctx context.Context) error {
	s.mu.Lock()
	client := s.client
	s.client = nil
	s.mu.Unlock()

	if client == nil {
		return nil
	}

	closeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Close(closeCtx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func variantToFloat(v *ua.Variant) (float64, bool) {
	if v == nil {
		return 0, false
	}

	switch val := v.Value().(type) {
	case float32:
		return float64(val), true
	case float64:
		return val, true
	case bool:
		if val {
			return 1, true
		}
		return 0, true
	case int8:
		return float64(val), true
	case uint8:
		return float64(val), true
	case int16:
		return float64(val), true
	case uint16:
		return float64(val), true
	case int32:
		return float64(val), true
	case uint32:
		return float64(val), true
	case int64:
		return float64(val), true
	case uint64:
		return float64(val), true
	default:
		return 0, false
	}
}

func normalizeSecurityMode(mode string) string {
	switch strings.ToLower(mode) {
	case "sign":
		return "Sign"
	case "signandencrypt", "signencrypt", "sign_and_encrypt", "sign+encrypt":
		return "SignAndEncrypt"
	default:
		return "None"
	}
}

func normalizeSecurityPolicy(policy string) string {
	if policy == "" {
		return "None"
	}
	return policy
}

var _ ports.NodeSource = (*Source)(nil)
