package device

import (
	"runtime"
	"strings"

	"github.com/apex/log"
	"github.com/veedubyou/stemsplitter/src/stemsplit/internal/application/executor"
)

//go:generate go run github.com/maxbrunsfeld/counterfeiter/v6 -generate

//counterfeiter:generate . Prober
type Prober interface {
	Available(kind Kind) bool
}

var _ Prober = HostProber{}

func NewHostProber(executor executor.Executor) HostProber {
	return HostProber{
		executor: executor,
		goos:     runtime.GOOS,
		goarch:   runtime.GOARCH,
	}
}

// HostProber checks the machine it runs on. CUDA needs nvidia-smi to list at
// least one GPU; Metal is assumed on Apple silicon.
type HostProber struct {
	executor executor.Executor
	goos     string
	goarch   string
}

func (h HostProber) WithPlatform(goos string, goarch string) HostProber {
	h.goos = goos
	h.goarch = goarch
	return h
}

func (h HostProber) Available(kind Kind) bool {
	switch kind {
	case CPU:
		return true
	case CUDA:
		return h.probeCUDA()
	case MPS:
		return h.goos == "darwin" && h.goarch == "arm64"
	default:
		return false
	}
}

func (h HostProber) probeCUDA() bool {
	binPath, err := h.executor.LookPath("nvidia-smi")
	if err != nil {
		log.WithError(err).Debug("nvidia-smi not found, CUDA unavailable")
		return false
	}

	output, err := h.executor.Command(binPath, "-L").CombinedOutput()
	if err != nil {
		log.WithError(err).
			WithField("nvidia_smi_output", string(output)).
			Debug("nvidia-smi failed, CUDA unavailable")
		return false
	}

	for _, line := range strings.Split(string(output), "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "GPU ") {
			return true
		}
	}

	return false
}
