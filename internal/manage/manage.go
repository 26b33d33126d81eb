// Package manage serves the WebSocket management endpoint of a running
// device. Each text message is one JSON request; each request gets one
// RESULT reply.
package manage

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/ardnew/softportal/device/emulated/infinity"
	"github.com/ardnew/softportal/internal/portal"
	"github.com/ardnew/softportal/pkg"
)

// Request types.
const (
	TypeLoad    = "LOAD"
	TypeRemove  = "REMOVE"
	TypeCreate  = "CREATE"
	TypeStatus  = "STATUS"
	TypeCatalog = "CATALOG"
	TypeResult  = "RESULT"
)

//go:embed request.schema.json
var requestSchema string

const requestSchemaURL = "https://softportal.local/schemas/request.schema.json"

// Request is a management request.
type Request struct {
	Type   string `json:"type"`
	ID     string `json:"id,omitempty"`
	Slot   string `json:"slot,omitempty"`
	Path   string `json:"path,omitempty"`
	Number int    `json:"number,omitempty"`
	Filter string `json:"filter,omitempty"`
}

// Figure is a catalog entry as listed by CATALOG.
type Figure struct {
	Name     string `json:"name"`
	Category string `json:"category"`
	Number   int    `json:"number"`
}

// Result is the reply to every request.
type Result struct {
	Type    string        `json:"type"`
	ID      string        `json:"id,omitempty"`
	OK      bool          `json:"ok"`
	Error   string        `json:"error,omitempty"`
	Name    string        `json:"name,omitempty"`
	Slot    string        `json:"slot,omitempty"`
	Slots   []portal.Slot `json:"slots,omitempty"`
	Figures []Figure      `json:"figures,omitempty"`
}

// Server answers management requests against one device.
type Server struct {
	dev    *portal.Device
	schema *jsonschema.Schema

	upgrader websocket.Upgrader
}

// NewServer creates a server for dev.
func NewServer(dev *portal.Device) (*Server, error) {
	schema, err := jsonschema.CompileString(requestSchemaURL, requestSchema)
	if err != nil {
		return nil, fmt.Errorf("compile request schema: %w", err)
	}
	return &Server{
		dev:    dev,
		schema: schema,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}, nil
}

// Mux returns a mux serving the endpoint at /ws.
func (s *Server) Mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.Handler())
	return mux
}

// Handler returns the WebSocket handler.
func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			pkg.LogWarn(pkg.ComponentManage, "upgrade failed", "remote", r.RemoteAddr, "error", err)
			return
		}
		defer conn.Close()
		pkg.LogInfo(pkg.ComponentManage, "client connected", "remote", r.RemoteAddr)

		for {
			_ = conn.SetReadDeadline(time.Now().Add(10 * time.Minute))
			kind, msg, err := conn.ReadMessage()
			if err != nil {
				pkg.LogDebug(pkg.ComponentManage, "client gone", "remote", r.RemoteAddr, "error", err)
				return
			}
			if kind != websocket.TextMessage {
				continue
			}
			res := s.Handle(r, msg)
			if err := writeJSON(conn, res); err != nil {
				return
			}
		}
	}
}

// Handle validates and runs one request message.
func (s *Server) Handle(r *http.Request, msg []byte) Result {
	var raw any
	if err := json.Unmarshal(msg, &raw); err != nil {
		return failure("", fmt.Errorf("decode request: %w", err))
	}
	if err := s.schema.Validate(raw); err != nil {
		return failure("", fmt.Errorf("invalid request: %w", err))
	}
	var req Request
	if err := json.Unmarshal(msg, &req); err != nil {
		return failure("", fmt.Errorf("decode request: %w", err))
	}

	pkg.LogDebug(pkg.ComponentManage, "request", "type", req.Type, "id", req.ID)
	res := Result{Type: TypeResult, ID: req.ID, OK: true}
	switch req.Type {
	case TypeLoad:
		slot, err := s.dev.Load(req.Slot, req.Path)
		if err != nil {
			return failure(req.ID, err)
		}
		res.Slot = slot.Name
		res.Name = slot.Figure

	case TypeRemove:
		if err := s.dev.Remove(req.Slot); err != nil {
			return failure(req.ID, err)
		}
		res.Slot = req.Slot

	case TypeCreate:
		e, err := s.dev.Create(r.Context(), req.Path, uint16(req.Number))
		if err != nil {
			return failure(req.ID, err)
		}
		res.Name = e.Name

	case TypeStatus:
		res.Slots = s.dev.Slots()

	case TypeCatalog:
		for _, e := range infinity.Search(req.Filter) {
			res.Figures = append(res.Figures, Figure{
				Name:     e.Name,
				Category: e.Category.String(),
				Number:   int(e.Number),
			})
		}
	}
	return res
}

func failure(id string, err error) Result {
	pkg.LogInfo(pkg.ComponentManage, "request failed", "id", id, "error", err)
	return Result{Type: TypeResult, ID: id, Error: err.Error()}
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}
