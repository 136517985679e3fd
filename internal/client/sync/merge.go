package sync

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/mitul002/prayersync/internal/keyreg"
	"github.com/mitul002/prayersync/internal/models"
)

// MergeSnapshots combines a local and a remote snapshot into one,
// applying the per-key merge strategy for each registered key. Both
// snapshots are keyed by local key names and hold decoded JSON values.
//
// On disjoint key sets the result is the plain union; no data is lost
// from either side.
func MergeSnapshots(local, remote map[string]any, logger *slog.Logger) map[string]any {
	merged := make(map[string]any)

	for _, key := range keyreg.Keys() {
		lv, lok := local[key]
		rv, rok := remote[key]

		switch {
		case !lok && !rok:
			continue
		case !lok:
			merged[key] = rv
		case !rok:
			merged[key] = lv
		default:
			merged[key] = mergeKey(key, lv, rv, logger)
		}
	}

	return merged
}

// mergeKey resolves one key present on both sides.
func mergeKey(key string, local, remote any, logger *slog.Logger) any {
	switch {
	case keyreg.IsSimplePreference(key):
		return remote

	case key == keyreg.KeyDhikrSettings:
		return mergeSettings(local, remote)

	case key == keyreg.KeyDhikrStats:
		return mergeStats(local, remote)

	case key == keyreg.KeyDhikrSession:
		return mergeSession(local, remote)

	case key == keyreg.KeyPrayerLog:
		return mergePrayerLog(local, remote)

	case key == keyreg.KeyFavoriteDhikrs:
		return mergeScalarList(local, remote)

	case key == keyreg.KeyFavoritePlaces:
		return mergeObjectList(local, remote, "id")

	case key == keyreg.KeyQazaCount:
		return sumNumbers(local, remote)

	case key == keyreg.KeyLastPrayerDate:
		return laterDate(local, remote)

	default:
		// uncategorized keys follow the preference rule
		logger.Debug("merging uncategorized key, remote wins", "key", key)
		return remote
	}
}

// mergeSettings shallow-merges the settings blob: remote values
// override local for shared subkeys, local-only subkeys survive. The
// nested per-dhikr target map is merged the same way one level deeper.
func mergeSettings(local, remote any) any {
	lm, lok := asMap(local)
	rm, rok := asMap(remote)
	if !lok || !rok {
		if rok {
			return remote
		}
		return local
	}

	out := make(map[string]any, len(lm)+len(rm))
	for k, v := range lm {
		out[k] = v
	}
	for k, v := range rm {
		if k == "targets" {
			continue
		}
		out[k] = v
	}

	lt, _ := asMap(lm["targets"])
	rt, _ := asMap(rm["targets"])
	if lt != nil || rt != nil {
		targets := make(map[string]any, len(lt)+len(rt))
		for k, v := range lt {
			targets[k] = v
		}
		for k, v := range rt {
			targets[k] = v
		}
		out["targets"] = targets
	}

	return out
}

// mergeStats combines the cumulative stats blob: streak takes the
// maximum, session and total counters sum, and the per-date history
// and per-dhikr count maps union with summed values on shared keys.
func mergeStats(local, remote any) any {
	lm, lok := asMap(local)
	rm, rok := asMap(remote)
	if !lok || !rok {
		if rok {
			return remote
		}
		return local
	}

	out := make(map[string]any, len(lm)+len(rm))
	for k, v := range lm {
		out[k] = v
	}
	for k, v := range rm {
		out[k] = v
	}

	out["streak"] = maxNumbers(lm["streak"], rm["streak"])
	out["completedSessions"] = sumNumbers(lm["completedSessions"], rm["completedSessions"])
	out["totalCount"] = sumNumbers(lm["totalCount"], rm["totalCount"])
	out["dailyHistory"] = sumCountMaps(lm["dailyHistory"], rm["dailyHistory"])
	out["dhikrCounts"] = sumCountMaps(lm["dhikrCounts"], rm["dhikrCounts"])

	return out
}

// mergeSession resolves the session-in-progress blob. Two sessions of
// the same dhikr sum their running counts and keep the most recently
// updated metadata; different dhikrs keep whichever was updated later.
func mergeSession(local, remote any) any {
	lm, lok := asMap(local)
	rm, rok := asMap(remote)
	if !lok || !rok {
		if rok {
			return remote
		}
		return local
	}

	newer := lm
	if timestampOf(rm) > timestampOf(lm) {
		newer = rm
	}

	// The discriminator must be a scalar id; comparing two decoded
	// objects with == panics. Anything non-string counts as different.
	ldhikr, lsok := lm["dhikr"].(string)
	rdhikr, rsok := rm["dhikr"].(string)
	if !lsok || !rsok || ldhikr != rdhikr {
		return newer
	}

	out := make(map[string]any, len(newer))
	for k, v := range newer {
		out[k] = v
	}
	out["count"] = sumNumbers(lm["count"], rm["count"])
	return out
}

// mergePrayerLog unions the status-per-date-per-prayer map. For a
// prayer recorded on both sides the higher-priority status wins
// (completed > qaza > missed > pending).
func mergePrayerLog(local, remote any) any {
	lm, lok := asMap(local)
	rm, rok := asMap(remote)
	if !lok || !rok {
		if rok {
			return remote
		}
		return local
	}

	out := make(map[string]any, len(lm)+len(rm))
	for date, statuses := range lm {
		out[date] = statuses
	}
	for date, remoteStatuses := range rm {
		localStatuses, ok := asMap(out[date])
		if !ok {
			out[date] = remoteStatuses
			continue
		}
		remoteDay, ok := asMap(remoteStatuses)
		if !ok {
			continue
		}

		day := make(map[string]any, len(localStatuses)+len(remoteDay))
		for prayer, status := range localStatuses {
			day[prayer] = status
		}
		for prayer, remoteStatus := range remoteDay {
			localStatus, ok := day[prayer]
			if !ok {
				day[prayer] = remoteStatus
				continue
			}
			day[prayer] = higherStatus(localStatus, remoteStatus)
		}
		out[date] = day
	}

	return out
}

// higherStatus picks the higher-priority prayer status.
func higherStatus(a, b any) any {
	as, _ := a.(string)
	bs, _ := b.(string)
	if models.StatusRank(models.PrayerStatus(bs)) > models.StatusRank(models.PrayerStatus(as)) {
		return b
	}
	return a
}

// mergeScalarList set-unions two scalar lists, local order first, then
// remote-only items in their order.
func mergeScalarList(local, remote any) any {
	ls, lok := asSlice(local)
	rs, rok := asSlice(remote)
	if !lok || !rok {
		if rok {
			return remote
		}
		return local
	}

	seen := make(map[string]bool, len(ls))
	out := make([]any, 0, len(ls)+len(rs))
	for _, item := range ls {
		k := scalarKey(item)
		if !seen[k] {
			seen[k] = true
			out = append(out, item)
		}
	}
	for _, item := range rs {
		k := scalarKey(item)
		if !seen[k] {
			seen[k] = true
			out = append(out, item)
		}
	}
	return out
}

// mergeObjectList unions two object lists by an identity field. An
// item from the remote list is added only if no local item shares its
// identity value.
func mergeObjectList(local, remote any, idField string) any {
	ls, lok := asSlice(local)
	rs, rok := asSlice(remote)
	if !lok || !rok {
		if rok {
			return remote
		}
		return local
	}

	seen := make(map[string]bool, len(ls))
	out := make([]any, 0, len(ls)+len(rs))
	for _, item := range ls {
		if m, ok := asMap(item); ok {
			seen[scalarKey(m[idField])] = true
		}
		out = append(out, item)
	}
	for _, item := range rs {
		m, ok := asMap(item)
		if !ok {
			out = append(out, item)
			continue
		}
		k := scalarKey(m[idField])
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, item)
	}
	return out
}

// sumNumbers adds two values numerically; a non-numeric side counts as
// zero, and two non-numeric sides keep the remote value.
func sumNumbers(a, b any) any {
	an, aok := asNumber(a)
	bn, bok := asNumber(b)
	if !aok && !bok {
		return b
	}
	return an + bn
}

func maxNumbers(a, b any) any {
	an, aok := asNumber(a)
	bn, bok := asNumber(b)
	if !aok && !bok {
		return b
	}
	if an > bn {
		return an
	}
	return bn
}

// sumCountMaps unions two count maps, summing shared keys.
func sumCountMaps(a, b any) any {
	am, aok := asMap(a)
	bm, bok := asMap(b)
	if !aok && !bok {
		return map[string]any{}
	}
	if !aok {
		return bm
	}
	if !bok {
		return am
	}

	out := make(map[string]any, len(am)+len(bm))
	for k, v := range am {
		out[k] = v
	}
	for k, v := range bm {
		if existing, ok := out[k]; ok {
			out[k] = sumNumbers(existing, v)
			continue
		}
		out[k] = v
	}
	return out
}

// laterDate keeps the chronologically later of two date strings.
// ISO dates compare correctly as strings.
func laterDate(a, b any) any {
	as, aok := a.(string)
	bs, bok := b.(string)
	if !aok || !bok {
		if bok {
			return b
		}
		return a
	}
	if bs > as {
		return b
	}
	return a
}

// timestampOf reads the updatedAt metadata of a session blob for
// recency comparison.
func timestampOf(m map[string]any) string {
	if ts, ok := m["updatedAt"].(string); ok {
		return ts
	}
	if ts, ok := m["startedAt"].(string); ok {
		return ts
	}
	return ""
}

// scalarKey normalizes a scalar for set membership.
func scalarKey(v any) string {
	switch s := v.(type) {
	case string:
		return "s:" + s
	case float64:
		return "n:" + formatNumber(s)
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("x:%v", v)
		}
		return "j:" + string(data)
	}
}
