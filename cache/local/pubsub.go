package local

import (
	"context"
	"sync"
)

// LocalMessage is an in-process pub/sub message.
type LocalMessage struct {
	Channel string
	Payload string
}

type subscription struct {
	ch     chan *LocalMessage
	closed bool
}

// LocalPubSub is an in-process fan-out pub/sub. Delivery is best effort: a
// subscriber whose buffer is full misses the message.
type LocalPubSub struct {
	mu       sync.RWMutex
	channels map[string][]*subscription
	bufSize  int
}

// NewPubSub creates a new LocalPubSub with the given per-subscriber buffer size.
func NewPubSub(bufSize int) *LocalPubSub {
	if bufSize <= 0 {
		bufSize = 256
	}
	return &LocalPubSub{
		channels: make(map[string][]*subscription),
		bufSize:  bufSize,
	}
}

// Publish sends a message to all subscribers of the given channel.
func (ps *LocalPubSub) Publish(_ context.Context, channel, message string) error {
	msg := &LocalMessage{Channel: channel, Payload: message}
	// Hold the read lock across the sends so cancel cannot close a channel
	// mid-delivery.
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	for _, s := range ps.channels[channel] {
		if s.closed {
			continue
		}
		select {
		case s.ch <- msg:
		default:
		}
	}
	return nil
}

// Subscribe returns one message stream for all the given channels, and a
// cancel function that unsubscribes and closes the stream.
func (ps *LocalPubSub) Subscribe(_ context.Context, channels ...string) (<-chan *LocalMessage, func(), error) {
	sub := &subscription{ch: make(chan *LocalMessage, ps.bufSize)}

	ps.mu.Lock()
	for _, c := range channels {
		ps.channels[c] = append(ps.channels[c], sub)
	}
	ps.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			ps.mu.Lock()
			defer ps.mu.Unlock()
			for _, c := range channels {
				list := ps.channels[c]
				for j, s := range list {
					if s == sub {
						ps.channels[c] = append(list[:j], list[j+1:]...)
						break
					}
				}
				if len(ps.channels[c]) == 0 {
					delete(ps.channels, c)
				}
			}
			sub.closed = true
			close(sub.ch)
		})
	}
	return sub.ch, cancel, nil
}

// Subscribers reports how many subscriptions are attached to channel.
func (ps *LocalPubSub) Subscribers(channel string) int {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	return len(ps.channels[channel])
}
