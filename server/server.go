// Package server exposes the simulator engine over HTTP and websocket.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/coder/websocket"

	"github.com/Fabianoeyes/Simulador-Economia-Circular-Verde/config"
	"github.com/Fabianoeyes/Simulador-Economia-Circular-Verde/engine"
)

// Server serves one workbook file. The file is re-read on every request
// and keyed by content hash, so saving the workbook in Excel is picked up
// without a restart while unchanged bytes reuse the compiled model.
type Server struct {
	path    string
	opts    engine.SessionOptions
	outputs []config.Output
	cache   *engine.SessionCache
}

func New(path string, opts engine.SessionOptions, outputs []config.Output) *Server {
	return &Server{
		path:    path,
		opts:    opts,
		outputs: outputs,
		cache:   engine.NewSessionCache(0),
	}
}

// Handler returns the API routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/inputs", s.handleInputs)
	mux.HandleFunc("POST /api/calc", s.handleCalc)
	mux.HandleFunc("GET /api/session", s.handleSession)
	return mux
}

// Edit is one input change in a calc request.
type Edit struct {
	Address string `json:"address"`
	Value   any    `json:"value"`
}

// CalcRequest is the body of POST /api/calc and of each websocket
// message. Edits are applied over the workbook's stored defaults, so a
// request describes the full input state, not a delta.
type CalcRequest struct {
	Edits []Edit `json:"edits"`
}

// Result is one computed output cell. A cell that failed to compute
// carries its "Erro:" text as the value.
type Result struct {
	Label   string `json:"label"`
	Address string `json:"address"`
	Value   any    `json:"value"`
}

// CalcResponse is the body of a calc reply.
type CalcResponse struct {
	Results []Result `json:"results"`
}

func (s *Server) session() (*engine.Session, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", s.path, err)
	}
	return s.cache.Load(s.path, data, s.opts)
}

func (s *Server) handleInputs(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session()
	if err != nil {
		httpError(w, err)
		return
	}
	sess.Lock()
	inputs := append([]engine.InputDescriptor(nil), sess.Inputs...)
	sess.Unlock()
	writeJSON(w, http.StatusOK, inputs)
}

func (s *Server) handleCalc(w http.ResponseWriter, r *http.Request) {
	var req CalcRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	sess, err := s.session()
	if err != nil {
		httpError(w, err)
		return
	}
	resp, err := s.calc(sess, req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// calc evaluates one request under the session lock. Inputs are first
// restored to the workbook's stored defaults so sessions shared through
// the cache never leak edits between requests. Edits may only address
// discovered input cells: writing anywhere else would clobber a formula
// in the shared session, and the restore loop could not undo it.
func (s *Server) calc(sess *engine.Session, req CalcRequest) (*CalcResponse, error) {
	sess.Lock()
	defer sess.Unlock()

	allowed := make(map[string]bool, len(sess.Inputs))
	for _, in := range sess.Inputs {
		allowed[in.Address] = true
	}
	addrs := make([]string, len(req.Edits))
	for i, edit := range req.Edits {
		addr := edit.Address
		if !hasSheet(addr) {
			addr = s.opts.Sheet + "!" + addr
		}
		if !allowed[addr] {
			return nil, fmt.Errorf("edição inválida %q: não é uma célula de entrada", edit.Address)
		}
		addrs[i] = addr
	}

	ev := sess.Evaluator
	for _, in := range sess.Inputs {
		if err := ev.SetCellValue(in.Address, in.Default); err != nil {
			return nil, err
		}
	}
	for i, edit := range req.Edits {
		if err := ev.SetCellValue(addrs[i], engine.Coerce(edit.Value)); err != nil {
			return nil, err
		}
	}

	resp := &CalcResponse{Results: make([]Result, len(s.outputs))}
	for i, out := range s.outputs {
		resp.Results[i] = Result{
			Label:   out.Label,
			Address: out.Address,
			Value:   ev.Evaluate(out.Address),
		}
	}
	return resp, nil
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	c, err := websocket.Accept(w, r, nil)
	if err != nil {
		return
	}
	defer c.CloseNow()

	ctx := r.Context()
	for {
		typ, data, err := c.Read(ctx)
		if err != nil {
			return
		}
		if typ != websocket.MessageText {
			c.Close(websocket.StatusUnsupportedData, "expected text frames")
			return
		}
		var req CalcRequest
		if err := json.Unmarshal(data, &req); err != nil {
			if writeErr := s.writeWS(ctx, c, wsError{Error: "invalid message: " + err.Error()}); writeErr != nil {
				return
			}
			continue
		}
		sess, err := s.session()
		if err != nil {
			if writeErr := s.writeWS(ctx, c, wsError{Error: err.Error()}); writeErr != nil {
				return
			}
			continue
		}
		resp, err := s.calc(sess, req)
		if err != nil {
			if writeErr := s.writeWS(ctx, c, wsError{Error: err.Error()}); writeErr != nil {
				return
			}
			continue
		}
		if err := s.writeWS(ctx, c, resp); err != nil {
			return
		}
	}
}

type wsError struct {
	Error string `json:"error"`
}

func (s *Server) writeWS(ctx context.Context, c *websocket.Conn, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return c.Write(writeCtx, websocket.MessageText, data)
}

// httpError maps load failures onto status codes: configuration problems
// (a missing sheet) are the client's to fix, unreadable workbooks are
// server-side failures. The full detail goes in the body either way.
func httpError(w http.ResponseWriter, err error) {
	var snf *engine.SheetNotFoundError
	if errors.As(err, &snf) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func hasSheet(address string) bool {
	for _, r := range address {
		if r == '!' {
			return true
		}
	}
	return false
}
