package e2e

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"testing"
	"time"

	"github.com/gookit/color"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/suite"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
)

type BaseSuite struct {
	suite.Suite
	Config Config
}

// SetupSuite loads the environment configuration before running tests
func (s *BaseSuite) SetupSuite() {
	var err error
	s.Config, err = LoadConfig()
	s.Require().NoError(err)
	if s.Config.ServerAddr == "" {
		s.T().Skip("E2E_SERVER_ADDR is not set")
	}
}

func (s *BaseSuite) header(t *testing.T, name string) {
	header := fmt.Sprintf("  ====== %s ======", name)
	if s.Config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	t.Log(header)
}

// Frame is one server event as received on the wire.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Peer is a websocket client speaking the chat protocol.
type Peer struct {
	s    *BaseSuite
	name string
	conn *websocket.Conn
}

func (s *BaseSuite) Dial(name string) *Peer {
	s.header(s.T(), "dial "+name)
	u := url.URL{Scheme: "ws", Host: s.Config.ServerAddr, Path: "/ws"}
	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	s.Require().NoError(err, "Failed to connect to "+u.String())
	return &Peer{s: s, name: name, conn: conn}
}

func (p *Peer) Close() {
	_ = p.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	_ = p.conn.Close()
}

func (p *Peer) Send(event string, data any) {
	payload, err := json.Marshal(data)
	p.s.Require().NoError(err)
	frame, err := json.Marshal(Frame{Event: event, Data: payload})
	p.s.Require().NoError(err)
	if p.s.Config.DebugJSON {
		p.s.T().Logf("%s -> %s", p.name, frame)
	}
	p.s.Require().NoError(p.conn.WriteMessage(websocket.TextMessage, frame))
}

// Await reads frames until one named event satisfies match.
func (p *Peer) Await(event string, match func(json.RawMessage) bool) json.RawMessage {
	deadline := time.Now().Add(5 * time.Second)
	for {
		p.s.Require().NoError(p.conn.SetReadDeadline(deadline))
		_, raw, err := p.conn.ReadMessage()
		p.s.Require().NoError(err, "%s never received %s", p.name, event)
		if p.s.Config.DebugJSON {
			p.s.T().Logf("%s <- %s", p.name, raw)
		}
		var frame Frame
		p.s.Require().NoError(json.Unmarshal(raw, &frame))
		if frame.Event == event && (match == nil || match(frame.Data)) {
			return frame.Data
		}
	}
}

// WithHealth provides a gRPC health client within a contextual test step
func (s *BaseSuite) WithHealth(name string, fn func(ctx context.Context, client healthpb.HealthClient)) {
	s.header(s.T(), name)
	marshaler := protojson.MarshalOptions{UseProtoNames: true, EmitUnpopulated: true}

	conn, err := grpc.NewClient(s.Config.HealthAddr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
			start := time.Now()
			err := invoker(ctx, method, req, reply, cc, opts...)
			line := fmt.Sprintf("GRPC %s [%s] in %v", method, status.Code(err), time.Since(start))
			if s.Config.DebugJSON && err == nil {
				line += "\n" + marshaler.Format(reply.(proto.Message))
			}
			s.T().Log(line)
			return err
		}),
	)
	s.Require().NoError(err, "Failed to connect to gRPC server at "+s.Config.HealthAddr)
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	fn(ctx, healthpb.NewHealthClient(conn))
}
