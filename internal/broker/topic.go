package broker

import (
	"fmt"
	"strings"
)

// ValidateFilter checks MQTT topic filter syntax: non-empty, '+' only as a whole
// level, '#' only as the whole last level.
func ValidateFilter(filter string) error {
	if filter == "" {
		return fmt.Errorf("topic filter is empty")
	}
	levels := strings.Split(filter, "/")
	for i, level := range levels {
		if strings.Contains(level, "#") && (level != "#" || i != len(levels)-1) {
			return fmt.Errorf("invalid topic filter %q: '#' must be the whole last level", filter)
		}
		if strings.Contains(level, "+") && level != "+" {
			return fmt.Errorf("invalid topic filter %q: '+' must be a whole level", filter)
		}
	}
	return nil
}

// Match reports whether topic matches an MQTT topic filter.
func Match(filter, topic string) bool {
	fl := strings.Split(filter, "/")
	tl := strings.Split(topic, "/")
	for i, f := range fl {
		if f == "#" {
			return true
		}
		if i >= len(tl) {
			return false
		}
		if f != "+" && f != tl[i] {
			return false
		}
	}
	return len(fl) == len(tl)
}

// RoutingKey translates an MQTT topic or filter to an AMQP topic-exchange
// routing key, following RabbitMQ's MQTT plugin mapping.
func RoutingKey(topic string) string {
	r := strings.NewReplacer("/", ".", "+", "*")
	return r.Replace(topic)
}

// TopicFromRoutingKey reverses RoutingKey for a concrete (wildcard-free) key.
func TopicFromRoutingKey(key string) string {
	return strings.ReplaceAll(key, ".", "/")
}
