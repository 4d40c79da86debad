package mqtt

import (
	"fmt"
	"strings"
)

const defaultPort = 1883

// BrokerURL builds the paho broker address. Host may carry its own scheme
// and port, e.g. "mqtts://broker:8883"; port is used when it does not.
func BrokerURL(host string, port int) string {
	scheme := "tcp"
	switch {
	case strings.HasPrefix(host, "mqtts://"):
		scheme = "ssl"
		host = strings.TrimPrefix(host, "mqtts://")
	case strings.HasPrefix(host, "mqtt://"):
		host = strings.TrimPrefix(host, "mqtt://")
	}

	if strings.Contains(host, ":") {
		return fmt.Sprintf("%s://%s", scheme, host)
	}
	if port == 0 {
		port = defaultPort
	}
	return fmt.Sprintf("%s://%s:%d", scheme, host, port)
}
