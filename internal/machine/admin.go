package machine

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"

	"github.com/jmerrifield20/ledgerd/internal/ledger"
)

// ModuleInfo describes the stored module.
type ModuleInfo struct {
	Size     int    `json:"size"`
	Checksum string `json:"checksum"`
}

// UpdateMaintainers replaces the maintainer set and returns its size. While
// the set is empty any caller may install one; afterwards only maintainers
// may replace it, and never with an empty set.
func (m *Machine) UpdateMaintainers(c Call, accounts []ledger.AccountID) (int, error) {
	if err := m.requireMaintainer(c); err != nil {
		return 0, err
	}
	if len(accounts) == 0 && len(m.maintainers) > 0 {
		return 0, ErrNoMaintainers
	}
	next := make(map[ledger.AccountID]struct{}, len(accounts))
	for _, a := range accounts {
		if err := a.Validate(); err != nil {
			return 0, fmt.Errorf("maintainer %q: %w", a, err)
		}
		next[a] = struct{}{}
	}
	m.maintainers = next
	return len(next), nil
}

// Maintainers returns the maintainer set in sorted order.
func (m *Machine) Maintainers() []ledger.AccountID {
	out := make([]ledger.AccountID, 0, len(m.maintainers))
	for a := range m.maintainers {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// IsMaintainer reports whether account belongs to the maintainer set.
func (m *Machine) IsMaintainer(account ledger.AccountID) bool {
	_, ok := m.maintainers[account]
	return ok
}

func (m *Machine) requireMaintainer(c Call) error {
	if len(m.maintainers) == 0 {
		return nil
	}
	if c.Anonymous() {
		return ErrAnonymousCaller
	}
	if !m.IsMaintainer(c.Caller) {
		return ErrNotMaintainer
	}
	return nil
}

// UploadModule stores data as the module and returns its checksum.
func (m *Machine) UploadModule(data []byte) (ModuleInfo, error) {
	if len(data) == 0 {
		return ModuleInfo{}, ErrEmptyModule
	}
	if m.maxModuleBytes > 0 && len(data) > m.maxModuleBytes {
		return ModuleInfo{}, fmt.Errorf("%w: %d > %d bytes", ErrModuleTooLarge, len(data), m.maxModuleBytes)
	}
	m.module = append([]byte(nil), data...)
	return moduleInfo(m.module), nil
}

// ModuleInfo describes the stored module, if one was uploaded.
func (m *Machine) ModuleInfo() (ModuleInfo, bool) {
	if m.module == nil {
		return ModuleInfo{}, false
	}
	return moduleInfo(m.module), true
}

func moduleInfo(data []byte) ModuleInfo {
	sum := sha256.Sum256(data)
	return ModuleInfo{Size: len(data), Checksum: hex.EncodeToString(sum[:])}
}
