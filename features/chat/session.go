package chat

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"virtualrag/internal/ingest"
	"virtualrag/internal/retrieval"
)

// sendQueueSize bounds the frame queue between response generation and the
// network writer. A slow client applies backpressure to the model stream
// instead of growing memory.
const sendQueueSize = 32

var errUnauthenticated = errors.New("authentication required")

// Session owns one client connection: the auth handshake, in-order command
// dispatch, and the per-connection conversation history. Reads happen on
// the session goroutine; a dedicated writer goroutine drains the outbound
// queue so generation pace and network pace stay decoupled.
type Session struct {
	id          string
	displayName string

	conn      Conn
	secret    string
	reader    DocumentReader
	ingestor  Ingestor
	responder Responder
	history   *retrieval.History
	logger    *slog.Logger

	out    chan Frame
	ctx    context.Context
	cancel context.CancelFunc
}

func NewSession(conn Conn, secret string, reader DocumentReader, ingestor Ingestor, responder Responder, maxTurns int, logger *slog.Logger) *Session {
	id := uuid.NewString()
	return &Session{
		id:        id,
		conn:      conn,
		secret:    secret,
		reader:    reader,
		ingestor:  ingestor,
		responder: responder,
		history:   retrieval.NewHistory(maxTurns),
		logger:    logger.With("session_id", id),
		out:       make(chan Frame, sendQueueSize),
	}
}

func (s *Session) ID() string { return s.id }

// Run drives the session until the client quits, disconnects, or fails
// authentication. It always closes the connection before returning.
func (s *Session) Run(ctx context.Context) {
	s.ctx, s.cancel = context.WithCancel(ctx)
	defer s.cancel()

	writerDone := make(chan struct{})
	go s.writeLoop(writerDone)

	// A cancelled session (server shutdown, write failure) must unblock
	// the pending read.
	go func() {
		<-s.ctx.Done()
		s.conn.Close()
	}()

	s.readLoop()

	// Let the writer flush queued frames, then tear the socket down.
	close(s.out)
	<-writerDone
	s.conn.Close()
	s.history.Clear()
}

func (s *Session) writeLoop(done chan<- struct{}) {
	defer close(done)
	for frame := range s.out {
		if err := s.conn.WriteJSON(frame); err != nil {
			s.logger.Debug("write failed, cancelling session", "error", err)
			s.cancel()
			for range s.out { // unblock the reader side
			}
			return
		}
	}
}

// send queues a frame for the writer, failing once the session is dead.
func (s *Session) send(frame Frame) error {
	select {
	case s.out <- frame:
		return nil
	case <-s.ctx.Done():
		return s.ctx.Err()
	}
}

func (s *Session) readLoop() {
	if err := s.authenticate(); err != nil {
		s.logger.Info("authentication rejected", "error", err)
		return
	}
	s.logger.Info("session authenticated", "display_name", s.displayName)

	for {
		var frame Frame
		if err := s.conn.ReadJSON(&frame); err != nil {
			s.logger.Info("client disconnected", "error", err)
			return
		}

		switch frame.Type {
		case TypeQuit:
			s.logger.Info("client quit")
			return
		case TypeChat:
			s.handleChat(frame.Text)
		case TypeUpload:
			// A populated text field makes this the attach variant:
			// upload, then answer the query against the index.
			if query := strings.TrimSpace(frame.Text); query != "" {
				s.attach(frame.Path, query)
			} else {
				s.handleUpload(frame.Path)
			}
		default:
			if err := s.send(errorFrame(fmt.Sprintf("unknown message type %q", frame.Type))); err != nil {
				return
			}
		}
		if s.ctx.Err() != nil {
			return
		}
	}
}

// authenticate enforces the handshake: the first frame must be auth with
// the shared secret. One failed attempt closes the channel.
func (s *Session) authenticate() error {
	var frame Frame
	if err := s.conn.ReadJSON(&frame); err != nil {
		return fmt.Errorf("reading auth frame: %w", err)
	}

	if frame.Type != TypeAuth || !secretsMatch(frame.Password, s.secret) {
		s.send(authResultFrame(false))
		return errUnauthenticated
	}

	s.displayName = frame.DisplayName
	if err := s.send(authResultFrame(true)); err != nil {
		return err
	}
	return nil
}

// secretsMatch compares digests so the comparison is constant-time and
// independent of secret length.
func secretsMatch(got, want string) bool {
	gotSum := sha256.Sum256([]byte(got))
	wantSum := sha256.Sum256([]byte(want))
	return subtle.ConstantTimeCompare(gotSum[:], wantSum[:]) == 1
}

// handleChat answers a plain query, or dispatches the /upload and /attach
// text commands.
func (s *Session) handleChat(text string) {
	text = strings.TrimSpace(text)
	switch commandWord(text) {
	case "/upload":
		path := strings.TrimSpace(strings.TrimPrefix(text, "/upload"))
		if path == "" {
			s.send(errorFrame("usage: /upload <path>"))
			return
		}
		s.handleUpload(path)
	case "/attach":
		path, query := splitAttach(strings.TrimPrefix(text, "/attach"))
		if path == "" || query == "" {
			s.send(errorFrame("usage: /attach <path> <query>"))
			return
		}
		s.attach(path, query)
	default:
		if text == "" {
			s.send(errorFrame("empty query"))
			return
		}
		s.respond(text)
	}
}

// commandWord extracts the leading slash command, if any, so a bare
// "/upload" still reports usage instead of becoming a model query.
func commandWord(text string) string {
	fields := strings.Fields(text)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return ""
	}
	return fields[0]
}

// attach uploads first, then always runs the query, duplicate or not.
func (s *Session) attach(path, query string) {
	s.handleUpload(path)
	if s.ctx.Err() == nil {
		s.respond(query)
	}
}

func splitAttach(rest string) (path, query string) {
	parts := strings.Fields(rest)
	if len(parts) < 2 {
		return "", ""
	}
	path = parts[0]
	query = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(rest), path))
	return path, query
}

func (s *Session) handleUpload(path string) {
	if path == "" {
		s.send(errorFrame("upload requires a path"))
		return
	}

	filename, text, err := s.reader.Read(path)
	if err != nil {
		s.logger.Warn("upload read failed", "path", path, "error", err)
		s.send(uploadResultFrame(string(ingest.StatusError), 0, err.Error()))
		return
	}

	// Indexing survives a disconnect: once the document is read, the
	// work completes even if this client goes away mid-embed.
	result, err := s.ingestor.Ingest(context.WithoutCancel(s.ctx), filename, text)
	if err != nil {
		s.logger.Warn("ingestion failed", "source", filename, "error", err)
		s.send(uploadResultFrame(string(result.Status), 0, err.Error()))
		return
	}
	s.send(uploadResultFrame(string(result.Status), result.ChunkCount, ""))
}

func (s *Session) respond(query string) {
	_, err := s.responder.Respond(s.ctx, s.history, query, &sessionSink{s})
	if err != nil {
		if s.ctx.Err() != nil {
			return
		}
		s.logger.Warn("response failed", "error", err)
		s.send(errorFrame(err.Error()))
		return
	}
	s.send(doneFrame())
}

// sessionSink forwards retrieval metadata and streamed tokens into the
// session's outbound queue.
type sessionSink struct {
	s *Session
}

func (k *sessionSink) Retrieval(count int, sources []string) error {
	return k.s.send(retrievalInfoFrame(count, sources))
}

func (k *sessionSink) Token(text string) error {
	return k.s.send(chunkFrame(text))
}
