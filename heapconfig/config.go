// Package heapconfig loads heap profiles from YAML. A profile names the
// arena capacity and alignment, so demos and tests can share heap setups
// without hardcoding sizes. Profiles carry no other settings.
package heapconfig

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/inhies/go-bytesize"
	"gopkg.in/yaml.v2"

	"github.com/gcheap-org/gcheap"
)

// Profile describes one heap configuration.
type Profile struct {
	// Capacity is the payload capacity of the arena. Either a plain byte
	// count ("51200") or a human-readable size ("50KB").
	Capacity string `yaml:"capacity"`

	// Align is the heap alignment in bytes. Power of two, at least two
	// machine words. Defaults to 16.
	Align int `yaml:"align"`
}

// DefaultProfile is used where no profile file is given.
var DefaultProfile = Profile{
	Capacity: "50KB",
	Align:    16,
}

// Load reads a profile from YAML.
func Load(r io.Reader) (*Profile, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("heapconfig: reading profile: %w", err)
	}
	profile := DefaultProfile
	if err := yaml.UnmarshalStrict(raw, &profile); err != nil {
		return nil, fmt.Errorf("heapconfig: parsing profile: %w", err)
	}
	if _, err := profile.CapacityBytes(); err != nil {
		return nil, err
	}
	return &profile, nil
}

// LoadFile reads a profile from the YAML file at path.
func LoadFile(path string) (*Profile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("heapconfig: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// CapacityBytes resolves the capacity string to a byte count.
func (p *Profile) CapacityBytes() (uintptr, error) {
	if n, err := strconv.ParseUint(p.Capacity, 10, 64); err == nil {
		return uintptr(n), nil
	}
	size, err := bytesize.Parse(p.Capacity)
	if err != nil {
		return 0, fmt.Errorf("heapconfig: capacity %q: %w", p.Capacity, err)
	}
	return uintptr(size), nil
}

// NewHeap constructs a heap from the profile.
func (p *Profile) NewHeap() (*gcheap.Heap, error) {
	capacity, err := p.CapacityBytes()
	if err != nil {
		return nil, err
	}
	return gcheap.New(capacity, uintptr(p.Align))
}
