package buffer

// Unbounded creates a channel buffer that grows as needed.
// It returns a write-only channel to feed data in, and a read-only channel to read data out.
//
// initialCap: The starting size of the backing slice.
// hardLimit: The maximum number of items to buffer before dropping (safety valve).
// onDrop: called with the dropped item when the limit is hit; may be nil.
//
// Closing the input channel flushes the remaining items and closes the output.
//
// Usage:
//
//	in, out := buffer.Unbounded[stream.Event](100, 50000, nil)
//	in <- ev
//	ev := <-out
func Unbounded[T any](initialCap int, hardLimit int, onDrop func(T)) (chan<- T, <-chan T) {
	in := make(chan T, 10)
	out := make(chan T, 10)

	go func() {
		defer close(out)

		queue := make([]T, 0, initialCap)

		for {
			var next T
			var downstream chan T

			// Enable the 'out' case only if we have data to send.
			if len(queue) > 0 {
				next = queue[0]
				downstream = out
			}

			select {
			case val, ok := <-in:
				if !ok {
					for _, item := range queue {
						out <- item
					}
					return
				}

				// Dropping the oldest chunk keeps the newest output, which is what a tail shows.
				if hardLimit > 0 && len(queue) >= hardLimit {
					if onDrop != nil {
						onDrop(queue[0])
					}
					var zero T
					queue[0] = zero
					queue = queue[1:]
				}

				queue = append(queue, val)

			case downstream <- next:
				var zero T
				queue[0] = zero
				queue = queue[1:]
			}
		}
	}()

	return in, out
}
