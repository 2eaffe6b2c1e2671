package api

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/VeduStorm/NovaCore/nova/common"
)

// BuildVersion is set with -ldflags "-X 'github.com/VeduStorm/NovaCore/nova/api.BuildVersion=1.2.3'".
var BuildVersion = "latest"

type SysInfoResp struct {
	Timestamp int64 `json:"timestamp"`

	App struct {
		StartAt     int64  `json:"start_at"`
		Version     string `json:"version"`
		GoVersion   string `json:"go_version"`
		MachineCode string `json:"machine_code"`
		LicenseOK   bool   `json:"license_ok"`
	} `json:"app"`

	Host struct {
		Hostname       string `json:"hostname"`
		OS             string `json:"os"`
		Platform       string `json:"platform"`
		PlatformVer    string `json:"platform_version"`
		KernelVersion  string `json:"kernel_version"`
		Arch           string `json:"arch"`
		Uptime         uint64 `json:"uptime"`
		Virtualization string `json:"virtualization"`
	} `json:"host"`

	CPU struct {
		ModelName string  `json:"model_name"`
		Cores     int     `json:"cores"`
		Load1     float64 `json:"load1"`
		Load5     float64 `json:"load5"`
		Load15    float64 `json:"load15"`
	} `json:"cpu"`

	Memory struct {
		Total       uint64  `json:"total"`
		Used        uint64  `json:"used"`
		UsedPercent float64 `json:"used_percent"`
	} `json:"memory"`

	Disk struct {
		Path        string  `json:"path"`
		Total       uint64  `json:"total"`
		Free        uint64  `json:"free"`
		UsedPercent float64 `json:"used_percent"`
	} `json:"disk"`
}

// Errors from individual probes are ignored; the fields stay zero.
func (s *Server) snapshot() *SysInfoResp {
	resp := &SysInfoResp{Timestamp: s.now().UnixMilli()}

	resp.App.StartAt = s.App.StartedAt.UnixMilli()
	resp.App.Version = BuildVersion
	resp.App.GoVersion = runtime.Version()
	resp.App.MachineCode, _ = common.MachineCode()
	resp.App.LicenseOK = s.App.Last().OK()

	if hi, err := host.Info(); err == nil {
		resp.Host.Hostname = hi.Hostname
		resp.Host.OS = hi.OS
		resp.Host.Platform = hi.Platform
		resp.Host.PlatformVer = hi.PlatformVersion
		resp.Host.KernelVersion = hi.KernelVersion
		resp.Host.Uptime = hi.Uptime
		resp.Host.Virtualization = hi.VirtualizationSystem
	}
	resp.Host.Arch = runtime.GOARCH

	resp.CPU.Cores, _ = cpu.Counts(true)
	if infos, err := cpu.Info(); err == nil && len(infos) > 0 {
		resp.CPU.ModelName = infos[0].ModelName
	}
	if ld, err := load.Avg(); err == nil && ld != nil {
		resp.CPU.Load1, resp.CPU.Load5, resp.CPU.Load15 = ld.Load1, ld.Load5, ld.Load15
	}

	if vm, err := mem.VirtualMemory(); err == nil {
		resp.Memory.Total = vm.Total
		resp.Memory.Used = vm.Used
		resp.Memory.UsedPercent = vm.UsedPercent
	}

	root := "/"
	if runtime.GOOS == "windows" {
		root = `C:\`
	}
	if du, err := disk.Usage(root); err == nil {
		resp.Disk.Path = du.Path
		resp.Disk.Total = du.Total
		resp.Disk.Free = du.Free
		resp.Disk.UsedPercent = du.UsedPercent
	}
	return resp
}

// GET /api/system
func (s *Server) systemInfo(c *gin.Context) {
	c.JSON(http.StatusOK, s.snapshot())
}

// uptime of the process, used by the websocket hello frame
func (s *Server) uptime() time.Duration { return s.now().Sub(s.App.StartedAt) }
