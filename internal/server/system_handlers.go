package server

import (
	"net/http"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
)

// handleSystemStatus reports host resource usage. The display app polls
// this, so CPU sampling stays short to keep responses fast.
func (s *Server) handleSystemStatus(w http.ResponseWriter, r *http.Request) {
	cpuAvg := 0.0
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		s.log.Warn().Err(err).Msg("Failed to get CPU percentage")
	} else if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}

	status := map[string]interface{}{
		"cpu_percent":    cpuAvg,
		"goroutines":     runtime.NumGoroutine(),
		"uptime_seconds": int64(time.Since(s.started).Seconds()),
	}

	if memStat, err := mem.VirtualMemory(); err != nil {
		s.log.Warn().Err(err).Msg("Failed to get memory statistics")
	} else {
		status["memory_percent"] = memStat.UsedPercent
		status["memory_used_mb"] = memStat.Used / 1024 / 1024
		status["memory_total_mb"] = memStat.Total / 1024 / 1024
	}

	if diskStat, err := disk.Usage("/"); err != nil {
		s.log.Warn().Err(err).Msg("Failed to get disk statistics")
	} else {
		status["disk_percent"] = diskStat.UsedPercent
		status["disk_free_gb"] = float64(diskStat.Free) / 1024 / 1024 / 1024
	}

	s.writeJSON(w, http.StatusOK, status)
}
