package config

import (
	"strconv"
	"strings"
)

// DeviceTarget is one access-control terminal and the origin tag its events carry
type DeviceTarget struct {
	Address  string
	OriginID int
}

// ParseDeviceTargets parses "ip:code,ip:code" pairs. Entries without a colon
// or with a non-integer code are skipped.
func ParseDeviceTargets(s string) []DeviceTarget {
	if strings.TrimSpace(s) == "" {
		return nil
	}

	var targets []DeviceTarget
	for _, pair := range strings.Split(s, ",") {
		addr, code, ok := strings.Cut(strings.TrimSpace(pair), ":")
		if !ok {
			continue
		}
		originID, err := strconv.Atoi(strings.TrimSpace(code))
		if err != nil {
			continue
		}
		targets = append(targets, DeviceTarget{
			Address:  strings.TrimSpace(addr),
			OriginID: originID,
		})
	}
	return targets
}
