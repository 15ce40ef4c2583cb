package embeddings

import "fmt"

func errShortResponse(want, got int) error {
	return fmt.Errorf("embedding response has %d items, expected %d", got, want)
}
