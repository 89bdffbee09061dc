// Package status reports device state: one snapshot per request, read
// fresh, never cached.
package status

import (
	"bufio"
	"net"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"
)

// Snapshot is a point-in-time view of the device.
type Snapshot struct {
	DeviceID        string `json:"device_id" example:"espcam-node" doc:"Device identifier"`
	IPAddress       string `json:"ip_address" example:"192.168.1.23" doc:"Local network address"`
	MACAddress      string `json:"mac_address" example:"aa:bb:cc:dd:ee:ff" doc:"Hardware address"`
	FreeMemoryBytes uint64 `json:"free_memory_bytes" example:"184320" doc:"Free memory estimate"`
	UptimeSeconds   int64  `json:"uptime_seconds" example:"3600" doc:"Seconds since process start"`
}

// Prober produces snapshots. All fields are read at snapshot time.
type Prober struct {
	deviceID string
	start    time.Time
}

// NewProber creates a prober; uptime counts from this call.
func NewProber(deviceID string) *Prober {
	return &Prober{
		deviceID: deviceID,
		start:    time.Now(),
	}
}

// Snapshot reads the device state fresh.
func (p *Prober) Snapshot() Snapshot {
	ip, mac := primaryInterface()
	return Snapshot{
		DeviceID:        p.deviceID,
		IPAddress:       ip,
		MACAddress:      mac,
		FreeMemoryBytes: freeMemory(),
		UptimeSeconds:   int64(time.Since(p.start).Seconds()),
	}
}

// primaryInterface returns the IPv4 address and MAC of the first interface
// that is up and not a loopback.
func primaryInterface() (string, string) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return "", ""
	}

	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			ipNet, ok := addr.(*net.IPNet)
			if !ok || ipNet.IP.To4() == nil {
				continue
			}
			return ipNet.IP.String(), iface.HardwareAddr.String()
		}
	}
	return "", ""
}

// freeMemory estimates available memory: MemAvailable from /proc/meminfo
// where present, otherwise the runtime's view of unused heap.
func freeMemory() uint64 {
	if v, ok := memAvailable("/proc/meminfo"); ok {
		return v
	}

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	if ms.HeapSys >= ms.HeapInuse {
		return ms.HeapSys - ms.HeapInuse
	}
	return 0
}

// memAvailable parses the MemAvailable line (kB) from a meminfo file.
func memAvailable(path string) (uint64, bool) {
	f, err := os.Open(path)
	if err != nil {
		return 0, false
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "MemAvailable:") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return 0, false
		}
		kb, err := strconv.ParseUint(fields[1], 10, 64)
		if err != nil {
			return 0, false
		}
		return kb * 1024, true
	}
	return 0, false
}
