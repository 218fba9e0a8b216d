package tdms

import (
	"fmt"
	"math"
	"sort"
)

// Defragment reads the TDMS file at sourcePath and writes an equivalent file
// to destPath containing exactly one segment: a single object list with
// every object's final accumulated properties (last write wins across the
// source file's segments, including any "wf_*" waveform properties, which
// are copied through unchanged like any other property), and one
// concatenated raw-data block per channel. destPath is therefore a
// self-contained, non-incremental rendering of sourcePath; sourcePath itself
// is never modified.
func Defragment(sourcePath, destPath string) error {
	src, err := Open(sourcePath)
	if err != nil {
		return err
	}
	defer src.Close()

	w, err := NewWriter(destPath)
	if err != nil {
		return err
	}

	// Defragmenting promises exactly one output segment, so the per-channel
	// writes below must never trigger an implicit mid-stream flush.
	w.autoFlushThreshold = math.MaxInt

	if err := defragmentInto(src, w); err != nil {
		_ = w.Close()
		return err
	}

	return w.Close()
}

func defragmentInto(src *File, w *Writer) error {
	for name, prop := range src.Properties {
		if err := w.SetFileProperty(name, prop.Value); err != nil {
			return fmt.Errorf("file property %q: %w", name, err)
		}
	}

	for groupName, group := range src.Groups {
		for name, prop := range group.Properties {
			if err := w.SetGroupProperty(groupName, name, prop.Value); err != nil {
				return fmt.Errorf("group %q property %q: %w", groupName, name, err)
			}
		}

		// Fingerprinting the channel-name set lets downstream tooling cheaply
		// tell whether two groups (e.g. across successive defragment runs)
		// settled on the same channel layout without a full slice comparison.
		channelNames := make([]string, 0, len(group.Channels))
		for channelName := range group.Channels {
			channelNames = append(channelNames, channelName)
		}
		sort.Strings(channelNames)
		w.logger.Log("msg", "defragmenting group", "group", groupName,
			"channels", len(channelNames), "fingerprint", fmt.Sprintf("%x", fingerprintPaths(channelNames)))

		for channelName, channel := range group.Channels {
			ch := channel
			for name, prop := range ch.Properties {
				if err := w.SetChannelProperty(groupName, channelName, name, prop.Value); err != nil {
					return fmt.Errorf("channel %q property %q: %w", ch.path, name, err)
				}
			}

			if err := copyChannelData(w, groupName, channelName, &ch); err != nil {
				return fmt.Errorf("channel %q: %w", ch.path, err)
			}
		}
	}

	return nil
}

// copyChannelData reads every value out of ch and writes it back through w
// in a single call, so the destination ends up with one contiguous raw-data
// run per channel. A channel with no values is still declared via
// CreateChannel so it appears in the output object list.
func copyChannelData(w *Writer, group, channel string, ch *Channel) error {
	if ch.NumValues() == 0 {
		return w.CreateChannel(group, channel, ch.DataType)
	}

	switch ch.DataType {
	case DataTypeInt8:
		values, err := ch.ReadInt8()
		if err != nil {
			return err
		}
		return w.WriteInt8(group, channel, values)
	case DataTypeInt16:
		values, err := ch.ReadInt16()
		if err != nil {
			return err
		}
		return w.WriteInt16(group, channel, values)
	case DataTypeInt32:
		values, err := ch.ReadInt32()
		if err != nil {
			return err
		}
		return w.WriteInt32(group, channel, values)
	case DataTypeInt64:
		values, err := ch.ReadInt64()
		if err != nil {
			return err
		}
		return w.WriteInt64(group, channel, values)
	case DataTypeUint8:
		values, err := ch.ReadUint8()
		if err != nil {
			return err
		}
		return w.WriteUint8(group, channel, values)
	case DataTypeUint16:
		values, err := ch.ReadUint16()
		if err != nil {
			return err
		}
		return w.WriteUint16(group, channel, values)
	case DataTypeUint32:
		values, err := ch.ReadUint32()
		if err != nil {
			return err
		}
		return w.WriteUint32(group, channel, values)
	case DataTypeUint64:
		values, err := ch.ReadUint64()
		if err != nil {
			return err
		}
		return w.WriteUint64(group, channel, values)
	case DataTypeFloat32:
		values, err := ch.ReadFloat32()
		if err != nil {
			return err
		}
		return w.WriteFloat32(group, channel, values)
	case DataTypeFloat64:
		values, err := ch.ReadFloat64()
		if err != nil {
			return err
		}
		return w.WriteFloat64(group, channel, values)
	case DataTypeBool:
		values, err := ch.ReadBool()
		if err != nil {
			return err
		}
		return w.WriteBool(group, channel, values)
	case DataTypeTimestamp:
		values, err := ch.ReadTimestamp()
		if err != nil {
			return err
		}
		return w.WriteTimestamp(group, channel, values)
	case DataTypeString:
		values, err := ch.ReadString()
		if err != nil {
			return err
		}
		return w.WriteStrings(group, channel, values)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownTypeTag, ch.DataType)
	}
}
