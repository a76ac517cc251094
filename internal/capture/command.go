package capture

import "strconv"

// sinceFromStart is the -T value passed when a checkpoint exists but its
// value is not forwarded.
const sinceFromStart = "0"

// BuildCommand returns the capture command line for snap:
//
//	<tool> -f <dest> -r <kb> -n <files> -v <format> [-T <since>] [*:S <tag>]
//
// When a since-checkpoint is stored, -T is added. With passSince false its
// value is the literal "0", reproducing the long-standing behaviour of
// capturing from the start of the buffer whenever any checkpoint exists;
// with passSince true the stored checkpoint is forwarded.
func BuildCommand(tool string, snap Snapshot, passSince bool) []string {
	argv := []string{
		tool,
		"-f", snap.Destination,
		"-r", strconv.Itoa(snap.MaxFileSizeKB),
		"-n", strconv.Itoa(snap.MaxFiles),
		"-v", string(snap.Format),
	}
	if snap.Since != "" {
		since := sinceFromStart
		if passSince {
			since = snap.Since
		}
		argv = append(argv, "-T", since)
	}
	if snap.FilterTag != "" {
		argv = append(argv, "*:S", snap.FilterTag)
	}
	return argv
}
