package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	lokiPushPath       = "/loki/api/v1/push"
	lokiBufferSize     = 1024
	lokiBatchSize      = 100
	lokiFlushInterval  = 2 * time.Second
	lokiRequestTimeout = 5 * time.Second
)

// LokiConfig configures pushing log entries to Grafana Loki
type LokiConfig struct {
	URL    string
	User   string
	APIKey string
	Job    string
}

type lokiLine struct {
	level     string
	timestamp time.Time
	line      string
}

type lokiStream struct {
	Stream map[string]string `json:"stream"`
	Values [][2]string       `json:"values"`
}

type lokiPush struct {
	Streams []lokiStream `json:"streams"`
}

// LokiHook is a logrus hook that batches entries and pushes them to Loki in the background.
// Fire never blocks; entries are dropped when the buffer is full.
type LokiHook struct {
	config        LokiConfig
	endpoint      string
	client        *http.Client
	formatter     log.Formatter
	lines         chan lokiLine
	batchSize     int
	flushInterval time.Duration
	errOut        io.Writer

	closeOnce sync.Once
	done      chan struct{}
	stopped   chan struct{}
}

// NewLokiHook creates the hook and starts its flusher goroutine
func NewLokiHook(config LokiConfig) *LokiHook {
	return newLokiHook(config, lokiBatchSize, os.Stderr)
}

func newLokiHook(config LokiConfig, batchSize int, errOut io.Writer) *LokiHook {
	if config.Job == "" {
		config.Job = "cogbot"
	}
	h := &LokiHook{
		config:        config,
		endpoint:      strings.TrimRight(config.URL, "/") + lokiPushPath,
		client:        &http.Client{Timeout: lokiRequestTimeout},
		formatter:     &log.JSONFormatter{},
		lines:         make(chan lokiLine, lokiBufferSize),
		batchSize:     batchSize,
		flushInterval: lokiFlushInterval,
		errOut:        errOut,
		done:          make(chan struct{}),
		stopped:       make(chan struct{}),
	}
	go h.run()
	return h
}

// Levels implements logrus.Hook
func (h *LokiHook) Levels() []log.Level {
	return log.AllLevels
}

// Fire implements logrus.Hook
func (h *LokiHook) Fire(entry *log.Entry) error {
	line, err := h.formatter.Format(entry)
	if err != nil {
		return fmt.Errorf("failed to format entry for loki: %w", err)
	}

	select {
	case h.lines <- lokiLine{level: entry.Level.String(), timestamp: entry.Time, line: strings.TrimRight(string(line), "\n")}:
	default:
	}
	return nil
}

// Close flushes buffered entries and stops the flusher
func (h *LokiHook) Close() {
	h.closeOnce.Do(func() {
		close(h.done)
		<-h.stopped
	})
}

func (h *LokiHook) run() {
	defer close(h.stopped)

	ticker := time.NewTicker(h.flushInterval)
	defer ticker.Stop()

	batch := make([]lokiLine, 0, h.batchSize)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := h.push(batch); err != nil {
			fmt.Fprintf(h.errOut, "loki push failed: %v\n", err)
		}
		batch = batch[:0]
	}

	for {
		select {
		case line := <-h.lines:
			batch = append(batch, line)
			if len(batch) >= h.batchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-h.done:
			for {
				select {
				case line := <-h.lines:
					batch = append(batch, line)
				default:
					flush()
					return
				}
			}
		}
	}
}

// push sends one batch, grouped into a stream per level
func (h *LokiHook) push(batch []lokiLine) error {
	byLevel := make(map[string]*lokiStream)
	var order []string
	for _, l := range batch {
		stream, ok := byLevel[l.level]
		if !ok {
			stream = &lokiStream{Stream: map[string]string{"job": h.config.Job, "level": l.level}}
			byLevel[l.level] = stream
			order = append(order, l.level)
		}
		stream.Values = append(stream.Values, [2]string{strconv.FormatInt(l.timestamp.UnixNano(), 10), l.line})
	}

	payload := lokiPush{Streams: make([]lokiStream, 0, len(order))}
	for _, level := range order {
		payload.Streams = append(payload.Streams, *byLevel[level])
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode push: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), lokiRequestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if h.config.User != "" || h.config.APIKey != "" {
		req.SetBasicAuth(h.config.User, h.config.APIKey)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("push request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("push rejected with status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return nil
}
