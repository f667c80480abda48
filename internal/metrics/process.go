package metrics

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/process"
)

// ProcessReport: снимок ресурсов процесса для итогового отчёта экспорта
type ProcessReport struct {
	CPUPercent float64 `json:"cpu_percent"`
	RSSMB      float64 `json:"rss_mb"`
	HeapMB     float64 `json:"heap_mb"`
	Goroutines int     `json:"goroutines"`
}

// String форматирует отчёт для лога
func (r ProcessReport) String() string {
	return fmt.Sprintf("CPU %.1f%%, RSS %.1f MB, heap %.1f MB, горутин %d",
		r.CPUPercent, r.RSSMB, r.HeapMB, r.Goroutines)
}

// SampleProcess снимает использование CPU и памяти текущим процессом.
// Если процессную метрику CPU получить нельзя, берётся системная.
func SampleProcess() (ProcessReport, error) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	report := ProcessReport{
		HeapMB:     float64(m.HeapAlloc) / 1024 / 1024,
		Goroutines: runtime.NumGoroutine(),
	}

	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return report, err
	}

	if mem, err := proc.MemoryInfo(); err == nil {
		report.RSSMB = float64(mem.RSS) / 1024 / 1024
	}

	cpuPercent, err := proc.CPUPercent()
	if err != nil {
		cpuPercents, sysErr := cpu.Percent(100*time.Millisecond, false)
		if sysErr != nil || len(cpuPercents) == 0 {
			return report, err
		}
		cpuPercent = cpuPercents[0]
	}
	report.CPUPercent = cpuPercent
	return report, nil
}

// FormatDuration возвращает длительность в виде «1м 5с»
func FormatDuration(d time.Duration) string {
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	switch {
	case hours > 0:
		return fmt.Sprintf("%dч %dм %dс", hours, minutes, seconds)
	case minutes > 0:
		return fmt.Sprintf("%dм %dс", minutes, seconds)
	case d >= time.Second:
		return fmt.Sprintf("%dс", seconds)
	default:
		return fmt.Sprintf("%dмс", d.Milliseconds())
	}
}
