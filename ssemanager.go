package sidekick

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"

	"github.com/launchdarkly/eventsource"

	"github.com/hlxsites/sidekick-config/util"
)

// SSEManager subscribes to the realtime endpoint announcing config document
// changes and triggers a refresh when one arrives. It is an optimization
// over polling, not a correctness requirement; a dropped stream only delays
// updates until the next poll.
type SSEManager struct {
	configManager    *RedirectConfigManager
	options          *Options
	stream           *eventsource.Stream
	eventChannel     chan eventsource.Event
	url              string
	errorHandler     eventsource.StreamErrorHandler
	context          context.Context
	stopEventHandler context.CancelFunc
	Started          bool
	Connected        atomic.Bool
}

// sseMessage is the payload of one realtime event.
type sseMessage struct {
	Type string `json:"type,omitempty"`
	URL  string `json:"url,omitempty"`
}

func newSSEManager(configManager *RedirectConfigManager, options *Options) (*SSEManager, error) {
	if options == nil {
		return nil, fmt.Errorf("SSE - Options cannot be nil")
	}
	sseManager := &SSEManager{
		configManager: configManager,
		options:       options,
		errorHandler: func(err error) eventsource.StreamErrorHandlerResult {
			util.Debugf("SSE - Error: %v\n", err)
			return eventsource.StreamErrorHandlerResult{
				CloseNow: false,
			}
		},
	}
	sseManager.Connected.Store(false)
	sseManager.context, sseManager.stopEventHandler = context.WithCancel(context.Background())

	return sseManager, nil
}

func (m *SSEManager) connectSSE(url string) error {
	// A stream is mutex locked - close any open one before subscribing so
	// two streams never race on the event channel.
	if m.stream != nil {
		m.stream.Close()
	}
	sse, err := eventsource.SubscribeWithURL(url,
		eventsource.StreamOptionCanRetryFirstConnection(m.options.RequestTimeout),
		eventsource.StreamOptionErrorHandler(m.errorHandler),
		eventsource.StreamOptionUseBackoff(m.options.RequestTimeout),
		eventsource.StreamOptionUseJitter(0.25),
		eventsource.StreamOptionHTTPClient(m.configManager.httpClient))
	if err != nil {
		return err
	}
	m.Connected.Store(true)
	m.stream = sse
	m.eventChannel = m.stream.Events
	m.Started = true
	go m.receiveSSEMessages()
	return nil
}

func (m *SSEManager) parseMessage(rawMessage []byte) (message sseMessage, err error) {
	err = json.Unmarshal(rawMessage, &message)
	return
}

func (m *SSEManager) receiveSSEMessages() {
	for {
		if m.stream == nil || m.context.Err() != nil {
			m.Connected.Store(false)
			return
		}
		select {
		case <-m.context.Done():
			m.Connected.Store(false)
			return
		case event, ok := <-m.eventChannel:
			if !ok {
				// Stream closed underneath us; the backoff in the stream
				// itself handles reconnects, a closed channel is final.
				m.Connected.Store(false)
				return
			}
			message, err := m.parseMessage([]byte(event.Data()))
			if err != nil {
				util.Debugf("SSE - Error unmarshalling message: %v\n", err)
				continue
			}
			if message.Type == "configuration-updated" || message.Type == "" {
				util.Debugf("SSE - Received configuration-updated message: %v\n", message)
				m.configManager.refreshAll(m.context)
			}
		}
	}
}

// Start connects to the realtime endpoint configured in Options.
func (m *SSEManager) Start() error {
	if m.options.RealtimeURI == "" || m.options.DisableRealtimeUpdates {
		return nil
	}
	m.url = m.options.RealtimeURI
	return m.connectSSE(m.url)
}

func (m *SSEManager) StopSSE() {
	if m.stream != nil {
		m.stream.Close()
		m.stream = nil
	}
}

func (m *SSEManager) Close() {
	m.stopEventHandler()
	m.StopSSE()
}
