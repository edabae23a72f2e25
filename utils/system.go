package utils

import (
	"log"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

const (
	// sessionMemory is what one headless Chrome needs to load the payment page.
	sessionMemory   = 512 << 20
	defaultSessions = 2
	maxSessions     = 8
)

// BrowserSessions decides how many browser sessions may run payments at once.
// A positive number in configValue wins; "auto" sizes the pool by the free CPU
// and memory of the host.
func BrowserSessions(configValue string) int {
	if n, err := strconv.Atoi(configValue); err == nil && n > 0 {
		log.Printf("Using configured number of browser sessions: %d", n)
		return n
	}
	if configValue != "auto" && configValue != "" {
		log.Printf("WARN: Invalid workers value '%s'. Defaulting to 'auto' mode.", configValue)
	}

	cores, err := cpu.Counts(true)
	if err != nil {
		log.Printf("WARN: Could not detect CPU cores. Falling back to %d sessions.", defaultSessions)
		return defaultSessions
	}
	var available uint64
	if vm, err := mem.VirtualMemory(); err == nil {
		available = vm.Available
	} else {
		log.Printf("WARN: Could not read available memory: %v", err)
	}

	n := sessionsFor(cores, available)
	log.Printf("System has %d logical cores and %s free memory. Using %d browser sessions.",
		cores, humanize.IBytes(available), n)
	return n
}

// sessionsFor allows one Chrome per two cores, no more than fit in available
// memory. available == 0 means unknown and skips the memory limit.
func sessionsFor(cores int, available uint64) int {
	n := cores / 2
	if available > 0 {
		if byMem := int(available / sessionMemory); byMem < n {
			n = byMem
		}
	}
	if n < 1 {
		n = 1
	}
	if n > maxSessions {
		n = maxSessions
	}
	return n
}
