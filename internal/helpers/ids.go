package helpers

const shortIDLength = 8

// ShortID trims a journal ID for display. Journal IDs are ULIDs whose leading
// characters encode the timestamp, so the random tail is kept.
func ShortID(id string) string {
	if len(id) > shortIDLength {
		return id[len(id)-shortIDLength:]
	}
	return id
}
