package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"post-it/auth"
	"post-it/domain"
	"post-it/domain/chat"
	"strings"
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
	issuer *auth.Issuer
}

// SetupSuite loads the environment configuration before running tests
func (s *BaseSuite) SetupSuite() {
	var err error
	s.Config, err = LoadConfig()
	s.Require().NoError(err)
	if s.Config.ServerAddr == "" {
		s.T().Skip("E2E_SERVER_ADDR is not set")
	}
	s.Require().NotEmpty(s.Config.JWTSecret, "JWT_SECRET must match the server's")
	s.issuer = auth.NewIssuer(s.Config.JWTSecret, s.Config.JWTIssuer)
}

func (s *BaseSuite) step(name string) {
	header := fmt.Sprintf("  ====== %s ======", name)
	if s.Config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	s.T().Log(header)
}

func (s *BaseSuite) Token(userID domain.UserID, roles ...string) string {
	token, err := s.issuer.GenerateToken(userID, roles, time.Minute)
	s.Require().NoError(err)
	return token
}

// Connect opens a session for the user and consumes its greeting.
func (s *BaseSuite) Connect(name string, userID domain.UserID) *websocket.Conn {
	s.step(name)
	url := fmt.Sprintf("ws://%s/ws", s.Config.ServerAddr)
	header := http.Header{"Authorization": {"Bearer " + s.Token(userID, auth.RoleUser)}}
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	s.Require().NoError(err, "Failed to open a session at "+url)
	s.Require().Equal("session", s.Read(conn).Event)
	return conn
}

func (s *BaseSuite) Send(conn *websocket.Conn, event, ref string, data any) {
	payload, err := json.Marshal(data)
	s.Require().NoError(err)
	frame := chat.Frame{Event: event, Ref: ref, Data: payload}
	s.dump("SENT", frame)
	s.Require().NoError(conn.WriteJSON(frame))
}

func (s *BaseSuite) Read(conn *websocket.Conn) chat.Frame {
	s.Require().NoError(conn.SetReadDeadline(time.Now().Add(5 * time.Second)))
	var frame chat.Frame
	s.Require().NoError(conn.ReadJSON(&frame))
	s.dump("RECEIVED", frame)
	return frame
}

// Ingest calls the ingestion API with a service credential.
func (s *BaseSuite) Ingest(method, path string, body any) *http.Response {
	var payload bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&payload).Encode(body))
	}
	r, err := http.NewRequest(method, fmt.Sprintf("http://%s%s", s.Config.ServerAddr, path), &payload)
	s.Require().NoError(err)
	r.Header.Set("Authorization", "Bearer "+s.Token("e2e-rest", auth.RoleService))
	res, err := http.DefaultClient.Do(r)
	s.Require().NoError(err)
	s.T().Logf("HTTP %s %s [%d]", method, path, res.StatusCode)
	return res
}

// WithHealth provides a gRPC health client within a contextual test step
func (s *BaseSuite) WithHealth(name string, fn func(ctx context.Context, client healthpb.HealthClient)) {
	if s.Config.OpsAddr == "" {
		s.T().Skip("E2E_OPS_ADDR is not set")
	}
	s.step(name)
	marshaler := protojson.MarshalOptions{UseProtoNames: true, Multiline: true, EmitUnpopulated: true}
	conn, err := grpc.NewClient(s.Config.OpsAddr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn,
			invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
			start := time.Now()
			err := invoker(ctx, method, req, reply, cc, opts...)

			logBuilder := strings.Builder{}
			fmt.Fprintf(&logBuilder, "GRPC %s [%s] in %v", method, status.Code(err), time.Since(start))
			if s.Config.DebugJSON && err == nil {
				fmt.Fprintln(&logBuilder, "\nRESPONSE:")
				fmt.Fprintln(&logBuilder, marshaler.Format(reply.(proto.Message)))
			}
			s.T().Log(logBuilder.String())
			return err
		}),
	)
	s.Require().NoError(err, "Failed to connect to gRPC server at "+s.Config.OpsAddr)
	defer func() { _ = conn.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	fn(ctx, healthpb.NewHealthClient(conn))
}

func (s *BaseSuite) dump(direction string, frame chat.Frame) {
	if !s.Config.DebugJSON {
		return
	}
	body, _ := json.MarshalIndent(frame, "", "  ")
	s.T().Logf("%s:\n%s", direction, body)
}
