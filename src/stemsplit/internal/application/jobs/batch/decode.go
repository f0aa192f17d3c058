package batch

import (
	"context"

	"github.com/veedubyou/stemsplitter/src/stemsplit/internal/application/audio"
)

type decodeResult struct {
	buffer audio.Buffer
	err    error
}

// decodeTask is a decode running on its own goroutine. The result channel
// is buffered so an abandoned task never blocks.
type decodeTask struct {
	path   string
	result chan decodeResult
}

func startDecode(ctx context.Context, decoder audio.Decoder, path string) *decodeTask {
	task := &decodeTask{
		path:   path,
		result: make(chan decodeResult, 1),
	}

	go func() {
		buffer, err := decoder.Decode(ctx, path)
		task.result <- decodeResult{buffer: buffer, err: err}
	}()

	return task
}

func (t *decodeTask) wait() (audio.Buffer, error) {
	result := <-t.result
	return result.buffer, result.err
}
