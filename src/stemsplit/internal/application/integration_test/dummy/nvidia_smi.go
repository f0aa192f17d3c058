package dummy

import (
	"fmt"
	"strings"

	"github.com/veedubyou/stemsplitter/src/stemsplit/internal/lib/cerr"
)

// NewDummyNvidiaSMIExecutor lists gpuCount GPUs. Zero GPUs makes nvidia-smi
// fail the way it does on a machine without a driver.
func NewDummyNvidiaSMIExecutor(gpuCount int) *Executor {
	executor := NewDummyExecutor()
	executor.Handlers["nvidia-smi"] = func(args []string) ([]byte, error) {
		if gpuCount == 0 {
			return []byte("NVIDIA-SMI has failed because it couldn't communicate with the NVIDIA driver."),
				cerr.Error("exit status 9")
		}

		lines := make([]string, gpuCount)
		for i := range lines {
			lines[i] = fmt.Sprintf("GPU %d: NVIDIA GeForce RTX 3090 (UUID: GPU-%08d)", i, i)
		}

		return []byte(strings.Join(lines, "\n") + "\n"), nil
	}

	return executor
}
