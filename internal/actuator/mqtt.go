package actuator

import (
	"fmt"
	"log"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

// MQTTSwitch publishes heater commands to an MQTT command topic. Commands
// are retained so the relay recovers its state after a broker restart.
type MQTTSwitch struct {
	client paho.Client
	topic  string

	mu sync.Mutex
	on bool
}

// NewMQTTSwitch wraps an already connected client. An empty topic is
// allowed; commands then become logged no-ops.
func NewMQTTSwitch(client paho.Client, topic string) *MQTTSwitch {
	return &MQTTSwitch{client: client, topic: topic}
}

// Set publishes ON or OFF and waits for the broker acknowledgment.
func (s *MQTTSwitch) Set(on bool) error {
	if s.topic == "" {
		log.Printf("no heater command topic configured, ignoring switch request")
		return nil
	}

	payload := "OFF"
	if on {
		payload = "ON"
	}

	token := s.client.Publish(s.topic, 1, true, payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("heater command timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("heater command: %w", err)
	}

	s.mu.Lock()
	s.on = on
	s.mu.Unlock()
	return nil
}

// State returns the last successfully commanded state.
func (s *MQTTSwitch) State() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.on
}
