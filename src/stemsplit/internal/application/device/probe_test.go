package device_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/veedubyou/stemsplitter/src/stemsplit/internal/application/device"
	"github.com/veedubyou/stemsplitter/src/stemsplit/internal/application/integration_test/dummy"
)

var _ = Describe("HostProber", func() {
	It("reports CUDA when nvidia-smi lists a GPU", func() {
		prober := device.NewHostProber(dummy.NewDummyNvidiaSMIExecutor(2))
		Expect(prober.Available(device.CUDA)).To(BeTrue())
	})

	It("reports no CUDA when nvidia-smi fails", func() {
		prober := device.NewHostProber(dummy.NewDummyNvidiaSMIExecutor(0))
		Expect(prober.Available(device.CUDA)).To(BeFalse())
	})

	It("reports no CUDA when nvidia-smi is not installed", func() {
		executor := dummy.NewDummyNvidiaSMIExecutor(1)
		executor.Missing["nvidia-smi"] = true

		prober := device.NewHostProber(executor)
		Expect(prober.Available(device.CUDA)).To(BeFalse())
		Expect(executor.Calls()).To(BeEmpty())
	})

	It("reports Metal only on Apple silicon", func() {
		prober := device.NewHostProber(dummy.NewDummyExecutor())

		Expect(prober.WithPlatform("darwin", "arm64").Available(device.MPS)).To(BeTrue())
		Expect(prober.WithPlatform("darwin", "amd64").Available(device.MPS)).To(BeFalse())
		Expect(prober.WithPlatform("linux", "arm64").Available(device.MPS)).To(BeFalse())
	})

	It("always reports CPU", func() {
		prober := device.NewHostProber(dummy.NewDummyExecutor())
		Expect(prober.Available(device.CPU)).To(BeTrue())
	})
})
