//go:build !nogpu

package gpu

import (
	"crypto/sha256"
	"fmt"

	"github.com/gogpu/deepzoom"
	"github.com/gogpu/deepzoom/internal/cache"
	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"
)

// spirvMagic is the first word of every SPIR-V module.
const spirvMagic = 0x07230203

// spirvCache holds compiled modules by source hash. Programs are rebuilt
// after every mode switch and device recovery; the source rarely changes.
var spirvCache = cache.New[[sha256.Size]byte, []uint32](16)

// compileWGSL compiles WGSL source to SPIR-V words, reusing earlier
// results for identical source. Errors wrap deepzoom.ErrProgramInvalid.
func compileWGSL(label, source string) ([]uint32, error) {
	return spirvCache.Load(sha256.Sum256([]byte(source)), func() ([]uint32, error) {
		return compileWGSLUncached(label, source)
	})
}

func compileWGSLUncached(label, source string) ([]uint32, error) {
	spirvBytes, err := naga.Compile(source)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", deepzoom.ErrProgramInvalid, label, err)
	}
	if len(spirvBytes) < 4 || len(spirvBytes)%4 != 0 {
		return nil, fmt.Errorf("%w: %s: malformed SPIR-V (%d bytes)", deepzoom.ErrProgramInvalid, label, len(spirvBytes))
	}

	// SPIR-V is little-endian 32-bit words
	words := make([]uint32, len(spirvBytes)/4)
	for i := range words {
		words[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}
	if words[0] != spirvMagic {
		return nil, fmt.Errorf("%w: %s: bad SPIR-V magic %#x", deepzoom.ErrProgramInvalid, label, words[0])
	}
	return words, nil
}

func createShaderModule(device hal.Device, label string, words []uint32) (hal.ShaderModule, error) {
	return device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label: label,
		Source: hal.ShaderSource{
			SPIRV: words,
		},
	})
}
