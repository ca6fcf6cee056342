// Package cdp implements a persistent, bidirectional CDP session: per-
// session monotonically increasing request IDs, a concurrent
// pending-completion map keyed by request ID, a 30-second command
// deadline, and graceful draining of every pending command on connection
// close. Request/response correlation is a map of ID to a single-use
// completion channel, fed by a dedicated inbound-read goroutine, over a
// single WebSocket transport (github.com/gorilla/websocket).
package cdp

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/html2pdf/pool/internal/metrics"
	"github.com/html2pdf/pool/internal/pdferr"
	"github.com/html2pdf/pool/internal/pdflog"
	"github.com/html2pdf/pool/internal/pdfopts"
)

// commandTimeout is the fixed deadline for every CDP command round-trip.
const commandTimeout = 30 * time.Second

// navigateSettle is the static post-navigate sleep this design uses in
// place of an event-based load wait.
const navigateSettle = 3 * time.Second

type request struct {
	ID     int64           `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
}

var emptyParams = json.RawMessage("{}")

// Session is a single long-lived CDP connection to one browser page.
// A Session is owned by exactly one caller at a time (the pool enforces
// this); its internal state is safe for the transport's own read goroutine
// to touch concurrently with the owning caller's command calls.
type Session struct {
	wsURL  string
	t      *transport
	logger arbor.ILogger
	reg    *metrics.Registry

	nextID int64

	mu        sync.Mutex
	pending   map[int64]chan *Message
	closed    bool
	closeErr  error
	enabled   bool
}

// New dials wsURL and starts the session's inbound read loop.
func New(ctx context.Context, wsURL string, logger arbor.ILogger, reg *metrics.Registry) (*Session, error) {
	logger = pdflog.OrDefault(logger)

	t, err := dial(ctx, wsURL)
	if err != nil {
		return nil, err
	}

	s := &Session{
		wsURL:   wsURL,
		t:       t,
		logger:  logger,
		reg:     reg,
		pending: make(map[int64]chan *Message),
	}
	go s.readLoop()
	return s, nil
}

// readLoop is the session's single inbound reader. It owns the transport's
// read side exclusively; it and failAllPending are the only writers to the
// pending map's channels, and each channel is removed from the map before
// it is written, so it receives at most one message.
func (s *Session) readLoop() {
	for {
		msg, err := s.t.readMessage()
		if err != nil {
			s.failAllPending(fmt.Errorf("cdp: %w: %v", pdferr.ErrConnectionError, err))
			return
		}
		if msg.IsEvent() {
			s.logger.Debug().Str("method", msg.Method).Msg("cdp event")
			continue
		}

		s.mu.Lock()
		ch, ok := s.pending[msg.ID]
		if ok {
			delete(s.pending, msg.ID)
		}
		s.mu.Unlock()

		if ok {
			ch <- msg
		}
	}
}

func (s *Session) failAllPending(err error) {
	s.mu.Lock()
	s.closed = true
	s.closeErr = err
	pending := s.pending
	s.pending = make(map[int64]chan *Message)
	s.mu.Unlock()

	failure := &Message{Error: mustMarshal(err.Error())}
	for _, ch := range pending {
		ch <- failure
	}
}

func mustMarshal(v string) json.RawMessage {
	b, _ := json.Marshal(v)
	return b
}

// send issues one command and waits for its matching response, subject to
// commandTimeout. On timeout or transport error the pending slot is
// removed and the Session must not be reused by the caller; it is
// considered degraded.
func (s *Session) send(ctx context.Context, method string, params json.RawMessage) (*Message, error) {
	if params == nil {
		params = emptyParams
	}

	s.mu.Lock()
	if s.closed {
		err := s.closeErr
		s.mu.Unlock()
		if err == nil {
			err = pdferr.ErrConnectionError
		}
		return nil, fmt.Errorf("cdp: session closed: %w", err)
	}
	id := atomic.AddInt64(&s.nextID, 1)
	ch := make(chan *Message, 1)
	s.pending[id] = ch
	s.mu.Unlock()

	start := time.Now()
	req := request{ID: id, Method: method, Params: params}
	if err := s.t.writeJSON(req); err != nil {
		s.mu.Lock()
		delete(s.pending, id)
		s.mu.Unlock()
		return nil, fmt.Errorf("cdp: write %s: %w: %v", method, pdferr.ErrConnectionError, err)
	}

	timer := time.NewTimer(commandTimeout)
	defer timer.Stop()

	select {
	case msg := <-ch:
		s.reg.ObserveCDPCommand(method, time.Since(start).Seconds())
		return msg, nil
	case <-timer.C:
		s.mu.Lock()
		delete(s.pending, id)
		s.mu.Unlock()
		return nil, fmt.Errorf("cdp: %s: %w", method, pdferr.ErrCommandTimeout)
	case <-ctx.Done():
		s.mu.Lock()
		delete(s.pending, id)
		s.mu.Unlock()
		return nil, fmt.Errorf("cdp: %s: %w", method, ctx.Err())
	}
}

// EnablePage sends Page.enable, required once per Session before
// navigation.
func (s *Session) EnablePage(ctx context.Context) error {
	msg, err := s.send(ctx, "Page.enable", nil)
	if err != nil {
		return err
	}
	if len(msg.Error) > 0 {
		return fmt.Errorf("cdp: Page.enable: %w: %s", pdferr.ErrConnectionError, errorMessage(msg.Error))
	}
	s.mu.Lock()
	s.enabled = true
	s.mu.Unlock()
	return nil
}

// Navigate sends Page.navigate and then sleeps navigateSettle as a static
// load wait; no event-based wait is required for local file:// content.
// It fails without sending anything if EnablePage has not yet succeeded.
func (s *Session) Navigate(ctx context.Context, url string) error {
	s.mu.Lock()
	enabled := s.enabled
	s.mu.Unlock()
	if !enabled {
		return fmt.Errorf("cdp: navigate %s: %w: Page.enable not called", url, pdferr.ErrConnectionError)
	}

	params, _ := json.Marshal(struct {
		URL string `json:"url"`
	}{URL: url})

	msg, err := s.send(ctx, "Page.navigate", params)
	if err != nil {
		return err
	}
	if len(msg.Error) > 0 {
		return fmt.Errorf("cdp: Page.navigate %s: %w: %s", url, pdferr.ErrNavigationError, errorMessage(msg.Error))
	}

	var result struct {
		ErrorText string `json:"errorText"`
	}
	if len(msg.Result) > 0 {
		_ = json.Unmarshal(msg.Result, &result)
		if result.ErrorText != "" {
			s.logger.Warn().Str("url", url).Str("error_text", result.ErrorText).Msg("navigation reported errorText")
		}
	}

	select {
	case <-time.After(navigateSettle):
	case <-ctx.Done():
		return fmt.Errorf("cdp: navigate settle: %w", ctx.Err())
	}
	return nil
}

// printToPDFParams mirrors every Page.printToPDF field this service
// populates on every call.
type printToPDFParams struct {
	Landscape         bool    `json:"landscape"`
	PrintBackground   bool    `json:"printBackground"`
	Scale             float64 `json:"scale"`
	PaperWidth        float64 `json:"paperWidth"`
	PaperHeight       float64 `json:"paperHeight"`
	MarginTop         float64 `json:"marginTop"`
	MarginBottom      float64 `json:"marginBottom"`
	MarginLeft        float64 `json:"marginLeft"`
	MarginRight       float64 `json:"marginRight"`
	PageRanges        string  `json:"pageRanges"`
	PreferCSSPageSize bool    `json:"preferCSSPageSize"`
}

// PrintToPDF sends Page.printToPDF with every option field populated and
// returns the base64-decoded PDF bytes.
func (s *Session) PrintToPDF(ctx context.Context, opts pdfopts.Options) ([]byte, error) {
	p := printToPDFParams{
		Landscape:         opts.Landscape,
		PrintBackground:   opts.PrintBackground,
		Scale:             opts.Scale,
		PaperWidth:        opts.PaperWidth,
		PaperHeight:       opts.PaperHeight,
		MarginTop:         opts.MarginTop,
		MarginBottom:      opts.MarginBottom,
		MarginLeft:        opts.MarginLeft,
		MarginRight:       opts.MarginRight,
		PageRanges:        opts.PageRanges,
		PreferCSSPageSize: opts.PreferCSSPageSize,
	}
	params, _ := json.Marshal(p)

	msg, err := s.send(ctx, "Page.printToPDF", params)
	if err != nil {
		return nil, err
	}
	if len(msg.Error) > 0 {
		return nil, fmt.Errorf("cdp: Page.printToPDF: %w: %s", pdferr.ErrPDFGenerationError, errorMessage(msg.Error))
	}

	var result struct {
		Data string `json:"data"`
	}
	if err := json.Unmarshal(msg.Result, &result); err != nil || result.Data == "" {
		return nil, fmt.Errorf("cdp: Page.printToPDF: %w: empty or malformed result", pdferr.ErrPDFGenerationError)
	}

	data, err := base64.StdEncoding.DecodeString(result.Data)
	if err != nil {
		return nil, fmt.Errorf("cdp: Page.printToPDF: %w: base64 decode: %v", pdferr.ErrPDFGenerationError, err)
	}
	return data, nil
}

// Close gracefully closes the transport and fails every pending command.
func (s *Session) Close() error {
	s.failAllPending(fmt.Errorf("cdp: %w", pdferr.ErrConnectionError))
	return s.t.close()
}
