package batch

// Chunk splits ids into ceil(len(ids)/limit) ordered chunks of at most limit
// ids each; the last chunk holds the remainder. Empty input yields no chunks.
// Chunks share the backing array of ids but are capacity-capped, so appending
// to one cannot overwrite its neighbour.
func Chunk(ids []string, limit int) [][]string {
	if len(ids) == 0 {
		return nil
	}
	if limit <= 0 {
		limit = 1
	}

	chunks := make([][]string, 0, chunkCount(len(ids), limit))
	for start := 0; start < len(ids); start += limit {
		end := start + limit
		if end > len(ids) {
			end = len(ids)
		}
		chunks = append(chunks, ids[start:end:end])
	}
	return chunks
}

func chunkCount(n, limit int) int {
	if n <= 0 || limit <= 0 {
		return 0
	}
	return (n + limit - 1) / limit
}
