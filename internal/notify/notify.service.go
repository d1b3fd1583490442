// Copyright (C) 2025 Josh Simonot
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package notify

import (
	"boilerctl/internal/config"
	"boilerctl/internal/events"
	"boilerctl/pkg/eventbus"
	"boilerctl/pkg/logger"
	"context"
	"time"
)

// Notifier forwards every outcome on the bus to MQTT.
type Notifier struct {
	log       *logger.Logger
	eb        *eventbus.Bus
	topic     string
	dial      func() (Publisher, error)
	retryWait time.Duration
}

// New returns nil when no broker is configured.
func New(appConf *config.Config) *Notifier {
	if appConf.MQTT.Broker == "" {
		return nil
	}
	conf := appConf.MQTT
	return newNotifier(appConf.EventBus, conf.Topic, func() (Publisher, error) {
		return NewRealPublisher(conf)
	})
}

func newNotifier(eb *eventbus.Bus, topic string, dial func() (Publisher, error)) *Notifier {
	return &Notifier{
		log:       logger.New("MQTT"),
		eb:        eb,
		topic:     topic,
		dial:      dial,
		retryWait: 30 * time.Second,
	}
}

func (n *Notifier) connect(ctx context.Context) Publisher {
	for {
		pub, err := n.dial()
		if err == nil {
			n.log.Info("connected, publishing to %s", n.topic)
			return pub
		}
		n.log.Warn("%v, retrying in %s", err, n.retryWait)
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(n.retryWait):
		}
	}
}

func (n *Notifier) Run(ctx context.Context) {
	// subscribe first so an outcome resolved while connecting is not lost
	outcomes, unsub := n.eb.Subscribe(ctx, events.TopicOutcome, false)
	defer unsub()

	pub := n.connect(ctx)
	if pub == nil {
		return
	}
	defer pub.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-outcomes:
			if !ok {
				return
			}
			o, ok := ev.(events.OutcomeUpdate)
			if !ok {
				continue
			}
			payload, err := FormatPayload(o)
			if err != nil {
				n.log.Error("format payload: %v", err)
				continue
			}
			if err := pub.Publish(n.topic, payload); err != nil {
				n.log.Error("%v", err)
				continue
			}
			n.log.Info("published %s outcome for %s", o.Status, o.Date)
		}
	}
}
