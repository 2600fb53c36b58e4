package reconciler

import (
	"sort"

	"github.com/yairfalse/netpilot/internal/normalizer"
	"github.com/yairfalse/netpilot/pkg/types"
)

// NameMatcher implements DeviceMatcher keyed on the normalized device name
type NameMatcher struct{}

// Match splits both sides into matched pairs and one-sided records.
// When a side lists the same name twice the first occurrence wins.
func (m *NameMatcher) Match(local, remote []types.DeviceRecord) MatchResult {
	localMap := indexByName(local)
	remoteMap := indexByName(remote)

	var result MatchResult
	for _, name := range sortedKeys(localMap) {
		l := localMap[name]
		if r, ok := remoteMap[name]; ok {
			result.Both = append(result.Both, MatchedPair{Name: name, Local: l, Remote: r})
		} else {
			result.OnlyLocal = append(result.OnlyLocal, l)
		}
	}
	for _, name := range sortedKeys(remoteMap) {
		if _, ok := localMap[name]; !ok {
			result.OnlyRemote = append(result.OnlyRemote, remoteMap[name])
		}
	}
	return result
}

func indexByName(devices []types.DeviceRecord) map[string]types.DeviceRecord {
	out := make(map[string]types.DeviceRecord, len(devices))
	for _, d := range devices {
		key := normalizer.NormalizeName(d.Name)
		if _, exists := out[key]; exists {
			continue
		}
		d.Name = key
		out[key] = d
	}
	return out
}

func sortedKeys(m map[string]types.DeviceRecord) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
