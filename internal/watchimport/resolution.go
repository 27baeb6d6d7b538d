package watchimport

// noResolving marks the resolution cursor as complete.
const noResolving = -1

// nextAmbiguous returns the index of the first MultipleMatches item at or
// after start, or noResolving when none remains. The cursor only ever
// moves forward through the original item list: items before start are
// never revisited within the same resolution pass, even if their status
// were to become ambiguous again by some other path. Forward-only search
// is the designed tie-break rule.
func nextAmbiguous(items []ImportItemWithMatch, start int) int {
	if start < 0 {
		start = 0
	}
	for i := start; i < len(items); i++ {
		if _, ok := items[i].Status.(MultipleMatches); ok {
			return i
		}
	}
	return noResolving
}

// startResolving places the cursor on the first ambiguous item. If none
// exists the session is immediately complete.
func startResolving(items []ImportItemWithMatch) int {
	return nextAmbiguous(items, 0)
}

// confirmMatch transitions the item at index to MatchConfirmed with the
// chosen candidate and advances the cursor to the next ambiguous item
// strictly after index.
func confirmMatch(items []ImportItemWithMatch, index int, chosen Candidate) int {
	if index < 0 || index >= len(items) {
		return noResolving
	}
	items[index].SetStatus(MatchConfirmed{Candidate: chosen})
	return nextAmbiguous(items, index+1)
}

// skipItem transitions the item at index to NoMatchFound, excluding it
// from import, and advances the cursor identically to confirmMatch.
func skipItem(items []ImportItemWithMatch, index int) int {
	if index < 0 || index >= len(items) {
		return noResolving
	}
	items[index].SetStatus(NoMatchFound{})
	return nextAmbiguous(items, index+1)
}

// recountPreview refreshes the preview's aggregate counters after
// resolution mutated item statuses.
func recountPreview(preview *MatcherPreview) {
	preview.ExactMatches = 0
	preview.MultipleMatches = 0
	preview.NoMatches = 0
	confirmed := 0
	for i := range preview.Items {
		switch preview.Items[i].Status.(type) {
		case ExactMatch:
			preview.ExactMatches++
		case MatchConfirmed:
			confirmed++
		case MultipleMatches:
			preview.MultipleMatches++
		case NoMatchFound:
			preview.NoMatches++
		}
	}
	// Confirmed items read as exact in the summary counts
	preview.ExactMatches += confirmed

	for i := range preview.Collections {
		c := &preview.Collections[i]
		c.ResolvedCount = 0
		c.UnresolvedCount = 0
		for _, idx := range c.ItemIndexes {
			if idx < 0 || idx >= len(preview.Items) {
				continue
			}
			if Importable(preview.Items[idx].Status) {
				c.ResolvedCount++
			} else {
				c.UnresolvedCount++
			}
		}
	}
}
