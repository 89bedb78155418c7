package telemetry

import (
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

// Topics maps snapshot fields to MQTT topics. Empty topics are skipped; the
// matching snapshot field then simply stays nil.
type Topics struct {
	BatterySoC   string
	SolarPower   string
	GridPower    string
	BatteryPower string
	HeaterPower  string
	HeaterState  string
}

// MQTTSource keeps the latest value per subscribed topic.
type MQTTSource struct {
	mu   sync.Mutex
	snap Snapshot
}

// NewMQTTSource subscribes to the configured topics on an already connected
// client.
func NewMQTTSource(client paho.Client, topics Topics) (*MQTTSource, error) {
	s := &MQTTSource{}

	subscribe := func(topic string, handler paho.MessageHandler) error {
		if topic == "" {
			return nil
		}
		token := client.Subscribe(topic, 0, handler)
		if !token.WaitTimeout(10 * time.Second) {
			return fmt.Errorf("subscribe %s: timeout", topic)
		}
		if err := token.Error(); err != nil {
			return fmt.Errorf("subscribe %s: %w", topic, err)
		}
		return nil
	}

	fields := []struct {
		topic string
		set   func(float64)
	}{
		{topics.BatterySoC, func(v float64) { s.snap.BatterySoC = &v }},
		{topics.SolarPower, func(v float64) { s.snap.SolarPower = &v }},
		{topics.GridPower, func(v float64) { s.snap.GridPower = &v }},
		{topics.BatteryPower, func(v float64) { s.snap.BatteryPower = &v }},
		{topics.HeaterPower, func(v float64) { s.snap.HeaterPower = &v }},
	}
	for _, f := range fields {
		set := f.set
		err := subscribe(f.topic, func(_ paho.Client, msg paho.Message) {
			v, err := parseNumber(msg.Payload())
			if err != nil {
				log.Printf("telemetry %s: %v", msg.Topic(), err)
				return
			}
			s.mu.Lock()
			set(v)
			s.mu.Unlock()
		})
		if err != nil {
			return nil, err
		}
	}

	err := subscribe(topics.HeaterState, func(_ paho.Client, msg paho.Message) {
		on, err := parseSwitchState(msg.Payload())
		if err != nil {
			log.Printf("telemetry %s: %v", msg.Topic(), err)
			return
		}
		s.mu.Lock()
		s.snap.HeaterOn = &on
		s.mu.Unlock()
	})
	if err != nil {
		return nil, err
	}

	return s, nil
}

// Snapshot returns a copy of the latest readings. It never fails; fields
// without a reading yet are nil.
func (s *MQTTSource) Snapshot() (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap, nil
}

func parseNumber(payload []byte) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(string(payload)), 64)
	if err != nil {
		return 0, fmt.Errorf("malformed numeric payload %q", payload)
	}
	return v, nil
}

func parseSwitchState(payload []byte) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(string(payload))) {
	case "on", "true", "1":
		return true, nil
	case "off", "false", "0":
		return false, nil
	}
	return false, fmt.Errorf("malformed switch payload %q", payload)
}
