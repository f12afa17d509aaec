package checkpointer

import ts "github.com/samuelfneumann/tilesarsa/timestep"

// nEpisode implements checkpointing every N episodes
type nEpisode struct {
	interval int
	episodes int
	object   Serializable // Object to save

	// filename returns the string filename of the file to save the object
	// in.
	//
	// If each serialized object should be saved in a separate file with
	// each file having an incremented number as a suffix (e.g.
	// file1.bin, file2.bin, ..., fileK.bin), then simply use the
	// static function FilenameEnumerator, which will return a function
	// that will enumerate filenames.
	//
	// Otherwise, if each serialized object should be saved in a
	// separate file, but the filename does not matter, use the
	// static function FileTimer to generate the required naming
	// function. For example:
	//
	// n := NewNEpisode(10, object, FileTimer("filename", ".bin"))
	filename func() string
}

// NewNEpisode returns a checkpointer that checkpoints object every n
// finished episodes. If n < 1, the checkpointer never checkpoints.
func NewNEpisode(n int, object Serializable,
	filename func() string) Checkpointer {
	return &nEpisode{
		interval: n,
		object:   object,
		filename: filename,
	}
}

// Checkpoint counts finished episodes and saves the Checkpointer's
// tracked object when the count reaches a multiple of the interval
func (n *nEpisode) Checkpoint(t ts.TimeStep) error {
	if n.interval < 1 || !t.Last() {
		return nil
	}

	n.episodes++
	if n.episodes%n.interval == 0 {
		return save(n.object, n.filename())
	}
	return nil
}
