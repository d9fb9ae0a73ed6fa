package vulkan

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-vk/engine/gpu"
	vk "github.com/vulkan-go/vulkan"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		res  vk.Result
		want error
	}{
		{vk.ErrorOutOfDate, gpu.ErrSurfaceOutOfDate},
		{vk.ErrorSurfaceLost, gpu.ErrSurfaceOutOfDate},
		{vk.ErrorDeviceLost, gpu.ErrDeviceLost},
		{vk.Timeout, gpu.ErrTimeout},
		{vk.NotReady, gpu.ErrTransient},
		{vk.ErrorOutOfDeviceMemory, gpu.ErrResourceExhausted},
		{errorOutOfPoolMemory, gpu.ErrResourceExhausted},
		{vk.ErrorInitializationFailed, gpu.ErrSetupFailure},
	}
	for _, tt := range tests {
		if got := classify(tt.res, gpu.ErrSetupFailure); got != tt.want {
			t.Errorf("classify(%d) = %v, want %v", tt.res, got, tt.want)
		}
	}
	if check(vk.Success, "noop", gpu.ErrSetupFailure) != nil {
		t.Error("success should not produce an error")
	}
	if err := check(vk.ErrorOutOfDate, "present", gpu.ErrDeviceLost); !errors.Is(err, gpu.ErrSurfaceOutOfDate) {
		t.Errorf("got %v, want out of date", err)
	}
}

func TestSetupErrorKeepsKnownClasses(t *testing.T) {
	if err := setupError(gpu.ErrResourceExhausted); !errors.Is(err, gpu.ErrResourceExhausted) || errors.Is(err, gpu.ErrSetupFailure) {
		t.Errorf("exhaustion should pass through, got %v", err)
	}
	if err := setupError(errors.New("glfw")); !errors.Is(err, gpu.ErrSetupFailure) {
		t.Errorf("unclassified errors become setup failures, got %v", err)
	}
}

func TestSafeString(t *testing.T) {
	if safeString("main") != "main\x00" {
		t.Error("missing terminator")
	}
	if safeString("main\x00") != "main\x00" {
		t.Error("terminator doubled")
	}
	if safeStrings(nil) != nil {
		t.Error("empty list should stay nil")
	}
}

func TestMemoryType(t *testing.T) {
	host := vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit)
	local := vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit)
	types := []vk.MemoryPropertyFlags{local, host | local, host}

	if i, ok := memoryType(types, 0b111, host); !ok || i != 1 {
		t.Errorf("got %d %v, want the first host-visible type", i, ok)
	}
	if i, ok := memoryType(types, 0b100, host); !ok || i != 2 {
		t.Errorf("type bits should exclude types 0 and 1, got %d", i)
	}
	if _, ok := memoryType(types, 0b001, host); ok {
		t.Error("device-local only memory is not host visible")
	}
}

func TestMaxSampleCount(t *testing.T) {
	counts := vk.SampleCountFlags(vk.SampleCount1Bit | vk.SampleCount2Bit | vk.SampleCount4Bit | vk.SampleCount8Bit)
	if got := maxSampleCount(counts); got != 8 {
		t.Errorf("got %d, want 8", got)
	}
	if got := maxSampleCount(vk.SampleCountFlags(vk.SampleCount1Bit)); got != 1 {
		t.Errorf("got %d, want 1", got)
	}
	if sampleCount(0) != vk.SampleCount1Bit || sampleCount(4) != vk.SampleCount4Bit {
		t.Error("sample count bits should equal the count")
	}
}

func TestDeviceScorePrefersDiscrete(t *testing.T) {
	if deviceScore(vk.PhysicalDeviceTypeDiscreteGpu) <= deviceScore(vk.PhysicalDeviceTypeIntegratedGpu) {
		t.Error("discrete should outrank integrated")
	}
	if deviceScore(vk.PhysicalDeviceTypeCpu) >= deviceScore(vk.PhysicalDeviceTypeVirtualGpu) {
		t.Error("virtual should outrank cpu")
	}
}

func TestSwapExtent(t *testing.T) {
	fixed := vk.SurfaceCapabilities{CurrentExtent: vk.Extent2D{Width: 800, Height: 600}}
	if e := swapExtent(fixed, 1024, 768); e.Width != 800 || e.Height != 600 {
		t.Errorf("fixed surface extent should win, got %dx%d", e.Width, e.Height)
	}

	free := vk.SurfaceCapabilities{
		CurrentExtent:  vk.Extent2D{Width: math.MaxUint32, Height: math.MaxUint32},
		MinImageExtent: vk.Extent2D{Width: 64, Height: 64},
		MaxImageExtent: vk.Extent2D{Width: 1920, Height: 1080},
	}
	if e := swapExtent(free, 4000, 10); e.Width != 1920 || e.Height != 64 {
		t.Errorf("got %dx%d, want 1920x64", e.Width, e.Height)
	}
}

func TestChoosePresentMode(t *testing.T) {
	all := []vk.PresentMode{vk.PresentModeImmediate, vk.PresentModeFifo, vk.PresentModeMailbox}
	if choosePresentMode(all, true) != vk.PresentModeFifo {
		t.Error("vsync must use FIFO")
	}
	if choosePresentMode(all, false) != vk.PresentModeMailbox {
		t.Error("mailbox should be preferred without vsync")
	}
	if choosePresentMode([]vk.PresentMode{vk.PresentModeFifo}, false) != vk.PresentModeFifo {
		t.Error("FIFO is the fallback")
	}
}

func TestChooseSurfaceFormat(t *testing.T) {
	formats := []vk.SurfaceFormat{
		{Format: vk.FormatR8g8b8a8Unorm, ColorSpace: vk.ColorSpaceSrgbNonlinear},
		{Format: vk.FormatB8g8r8a8Srgb, ColorSpace: vk.ColorSpaceSrgbNonlinear},
	}
	if f := chooseSurfaceFormat(formats); f.Format != vk.FormatB8g8r8a8Srgb {
		t.Errorf("got %v, want sRGB BGRA", f.Format)
	}
	if f := chooseSurfaceFormat(formats[:1]); f.Format != vk.FormatR8g8b8a8Unorm {
		t.Errorf("should fall back to the first format, got %v", f.Format)
	}
	if engineFormat(chooseSurfaceFormat(nil).Format) != gpu.FormatBGRA8Srgb {
		t.Error("an empty list should still produce sRGB BGRA")
	}
}

func TestSpirvWords(t *testing.T) {
	words, err := spirvWords([]byte{0x03, 0x02, 0x23, 0x07, 1, 0, 0, 0})
	if err != nil {
		t.Fatal(err)
	}
	if len(words) != 2 || words[0] != 0x07230203 || words[1] != 1 {
		t.Errorf("got %#x", words)
	}
	if _, err := spirvWords([]byte{1, 2, 3}); err == nil {
		t.Error("unaligned code should be rejected")
	}
}

func TestValidateRenderPass(t *testing.T) {
	attachments := []gpu.AttachmentDescription{
		{Format: gpu.FormatBGRA8Srgb, Samples: 4},
		{Format: gpu.FormatDepth32Float, Samples: 4},
		{Format: gpu.FormatBGRA8Srgb, Samples: 1},
	}
	ok := gpu.RenderPassDescriptor{
		Attachments: attachments,
		Subpass:     gpu.SubpassDescription{ColorAttachments: []int{0}, ResolveAttachments: []int{2}, DepthAttachment: 1},
	}
	if err := validateRenderPass(ok); err != nil {
		t.Errorf("valid pass rejected: %v", err)
	}

	bad := ok
	bad.Subpass.DepthAttachment = 3
	if validateRenderPass(bad) == nil {
		t.Error("out of range depth attachment accepted")
	}
	bad = ok
	bad.Subpass.ResolveAttachments = []int{2, 2}
	if validateRenderPass(bad) == nil {
		t.Error("mismatched resolve count accepted")
	}
	depthOnly := gpu.RenderPassDescriptor{
		Attachments: attachments[1:2],
		Subpass:     gpu.SubpassDescription{DepthAttachment: 0},
	}
	if err := validateRenderPass(depthOnly); err != nil {
		t.Errorf("depth-only pass rejected: %v", err)
	}
}

func TestDynamicStates(t *testing.T) {
	if n := len(dynamicStates(gpu.DepthBias{})); n != 2 {
		t.Errorf("got %d states, want viewport and scissor", n)
	}
	states := dynamicStates(gpu.DepthBias{Enabled: true, Dynamic: true})
	if len(states) != 3 || states[2] != vk.DynamicStateDepthBias {
		t.Errorf("dynamic bias missing: %v", states)
	}
	if n := len(dynamicStates(gpu.DepthBias{Enabled: true})); n != 2 {
		t.Error("static bias should not be dynamic")
	}
}

func TestBlendAttachment(t *testing.T) {
	if b := blendAttachment(true); b.BlendEnable != vk.True || b.DstColorBlendFactor != vk.BlendFactorOneMinusSrcAlpha {
		t.Errorf("unexpected blend state %+v", b)
	}
	if b := blendAttachment(false); b.BlendEnable != vk.False || b.ColorWriteMask == 0 {
		t.Errorf("opaque pipelines must still write color, got %+v", b)
	}
}

func TestSubresourceRangeResolvesRemaining(t *testing.T) {
	r := subresourceRange(gpu.SubresourceRange{
		Aspect:     gpu.ImageAspectDepth,
		LevelCount: gpu.RemainingMipLevels,
		LayerCount: 4,
	})
	if r.LevelCount != vk.RemainingMipLevels || r.LayerCount != 4 {
		t.Errorf("got levels %d layers %d", r.LevelCount, r.LayerCount)
	}
	if r.AspectMask != vk.ImageAspectFlags(vk.ImageAspectDepthBit) {
		t.Errorf("got aspect %#x", r.AspectMask)
	}
	if aspect(0) != vk.ImageAspectFlags(vk.ImageAspectColorBit) {
		t.Error("empty aspect should default to color")
	}
}

func TestPipelineStagesAndAccess(t *testing.T) {
	got := pipelineStages(gpu.PipelineStageEarlyFragmentTests | gpu.PipelineStageLateFragmentTests)
	want := vk.PipelineStageFlags(vk.PipelineStageEarlyFragmentTestsBit | vk.PipelineStageLateFragmentTestsBit)
	if got != want {
		t.Errorf("got %#x, want %#x", got, want)
	}
	if pipelineStages(0) != vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit) {
		t.Error("empty stage mask should become top of pipe")
	}
	if access(gpu.AccessNone) != 0 {
		t.Error("no access should stay empty")
	}
}

func TestTimeoutNanos(t *testing.T) {
	if timeoutNanos(-1) != math.MaxUint64 {
		t.Error("negative timeout should wait forever")
	}
	if timeoutNanos(time.Second) != uint64(time.Second) {
		t.Error("wrong conversion")
	}
}

func TestBatchBarriersSplitsStagePairs(t *testing.T) {
	toTransfer := gpu.ImageBarrier{Image: 1, SrcStage: gpu.PipelineStageTopOfPipe, DstStage: gpu.PipelineStageTransfer}
	toShader := gpu.ImageBarrier{Image: 2, SrcStage: gpu.PipelineStageTransfer, DstStage: gpu.PipelineStageFragmentShader}
	alsoTransfer := gpu.ImageBarrier{Image: 3, SrcStage: gpu.PipelineStageTopOfPipe, DstStage: gpu.PipelineStageTransfer}

	batches := batchBarriers([]gpu.ImageBarrier{toTransfer, toShader, alsoTransfer})
	if len(batches) != 2 {
		t.Fatalf("got %d batches, want 2", len(batches))
	}
	first, second := batches[0], batches[1]
	if first.src != gpu.PipelineStageTopOfPipe || first.dst != gpu.PipelineStageTransfer || len(first.barriers) != 2 ||
		first.barriers[0].Image != 1 || first.barriers[1].Image != 3 {
		t.Errorf("first batch = %+v", first)
	}
	// the fragment-shader wait must not leak into the transfer batch
	if second.src != gpu.PipelineStageTransfer || second.dst != gpu.PipelineStageFragmentShader || len(second.barriers) != 1 {
		t.Errorf("second batch = %+v", second)
	}
	if got := batchBarriers(nil); len(got) != 0 {
		t.Errorf("empty input gave %d batches", len(got))
	}
}
