package astartedevice

import "strings"

// Topic helpers, grounded on services/hal/internal/core/topics.go's
// base(...).Append(...) builder, generalized from the hal/cap/<domain>
// hierarchy to Astarte's fixed "<realm>/<device_id>/<interface>/<path>"
// layout (spec.md §6).

// baseTopicOf joins realm and deviceID into the "<realm>/<device_id>"
// prefix every device topic lives under.
func baseTopicOf(realm, deviceID string) string {
	return realm + "/" + deviceID
}

// dataTopic is "<base>/<iface>/<path>" with path's leading "/" folded in.
func dataTopic(base, iface, path string) string {
	return base + "/" + iface + path
}

// controlEmptyCacheTopic is "<base>/control/emptyCache".
func controlEmptyCacheTopic(base string) string {
	return base + "/control/emptyCache"
}

// controlConsumerPropertiesTopic is "<base>/control/consumer/properties".
func controlConsumerPropertiesTopic(base string) string {
	return base + "/control/consumer/properties"
}

// serverIfaceSubtree is the subscribe filter for a whole server-owned
// interface: "<base>/<iface>/#".
func serverIfaceSubtree(base, iface string) string {
	return base + "/" + iface + "/#"
}

// splitDataTopic strips base from topic and splits the remainder into an
// interface name (first segment) and a concrete path (the rest, with its
// leading "/" restored). ok is false if topic does not live under base or
// has no path component.
func splitDataTopic(base, topic string) (iface, path string, ok bool) {
	rest := strings.TrimPrefix(topic, base+"/")
	if rest == topic {
		return "", "", false
	}
	idx := strings.IndexByte(rest, '/')
	if idx < 0 {
		return "", "", false
	}
	return rest[:idx], rest[idx:], true
}

// isControlTopic reports whether topic falls under "<base>/control".
func isControlTopic(base, topic string) bool {
	return strings.HasPrefix(topic, base+"/control/")
}
