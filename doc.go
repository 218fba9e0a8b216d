// Package tdms provides a pure Go reader and writer for the Technical Data
// Management Streaming (TDMS) file format used by National Instruments (NI)
// software such as LabVIEW.
//
// Open a file with [Open] or create a [File] from an [io.ReadSeeker] with
// [New]. Access groups and channels via the [File.Groups] map, then read
// channel data using the typed Read/Iter methods on [Channel].
//
//	file, err := tdms.Open("data.tdms")
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer file.Close()
//
//	for _, group := range file.Groups {
//		for _, channel := range group.Channels {
//			// Iterate through fixed-size windows of values.
//			for batch, err := range channel.IterFloat64(1024) {
//				if err != nil {
//					log.Fatal(err)
//				}
//				fmt.Println(batch)
//			}
//
//			// Or read every value into a single slice.
//			values, err := channel.ReadFloat64()
//			if err != nil {
//				log.Fatal(err)
//			}
//			fmt.Println(values)
//		}
//	}
//
// Files, groups, and channels can all have properties. To get a type-safe
// property value, use the As[Type]() methods, e.g. [Property.AsFloat64],
// [Property.AsUint32], [Property.AsString], etc.
//
//	authorProp := file.Properties["Author"]
//
//	// Don't confuse String() (Stringer interface implementation) with
//	// AsString(), which returns the value as a string.
//	author, err := authorProp.AsString()
//	if err != nil {
//		log.Fatal(err)
//	}
//
// Timestamps are stored as [Timestamp], which is more precise than
// time.Time. Convert between the two with [Timestamp.AsTime] and
// [TimestampFromTime]. Property values can be retrieved as their TDMS
// timestamp using [Property.AsTimestamp], or automatically converted to
// time.Time using [Property.AsTime].
//
//	createdAtProp := file.Properties["CreatedAt"]
//	createdAt, err := createdAtProp.AsTimestamp()
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	fmt.Printf("File was created at %s", createdAt.AsTime())
//
// You can also get the value as [any] and perform your own switch on the
// type. This is an exhaustive list of all the possible types [tdms]
// supports:
//
//	prop := file.Properties["analysisResults"]
//	switch v := prop.Value.(type) {
//	case int8:
//		fmt.Printf("8-bit signed integer: %v", v)
//	case int16:
//		fmt.Printf("16-bit signed integer: %v", v)
//	case int32:
//		fmt.Printf("32-bit signed integer: %v", v)
//	case int64:
//		fmt.Printf("64-bit signed integer: %v", v)
//	case uint8:
//		fmt.Printf("8-bit unsigned integer: %v", v)
//	case uint16:
//		fmt.Printf("16-bit unsigned integer: %v", v)
//	case uint32:
//		fmt.Printf("32-bit unsigned integer: %v", v)
//	case uint64:
//		fmt.Printf("64-bit unsigned integer: %v", v)
//	case float32:
//		fmt.Printf("32-bit floating point: %v", v)
//	case float64:
//		fmt.Printf("64-bit floating point: %v", v)
//	case string:
//		fmt.Printf("string: %v", v)
//	case bool:
//		fmt.Printf("boolean: %v", v)
//	case tdms.Timestamp:
//		fmt.Printf("timestamp: %v", v)
//	case nil:
//		fmt.Printf("void (no value)")
//	default:
//		fmt.Printf("unknown type: %T", v)
//	}
//
// When opening a [File] from a filename with [Open], the file is determined
// to be an index file (containing all metadata and no raw data) if the
// filename ends with ".tdms_index". Otherwise, it's a standard TDMS file
// with data in it, and Open transparently prefers a "<filename>_index"
// sidecar over the data file itself when one exists and isn't older than the
// data file, since [Writer] and [RotatingWriter] both maintain one
// alongside every file they write.
//
// As well as opening files with [Open], you can open a [File] from any type
// implementing [io.ReadSeeker] with [New]. When you do this, the size and
// whether it's an index file can no longer be inferred, so you need to pass
// those in explicitly:
//
//	var tdmsFileBytes []byte
//	tdmsReader := bytes.NewReader(tdmsFileBytes)
//	tdmsSize := int64(len(tdmsFileBytes))
//	isIndex := false
//
//	file, err := tdms.New(tdmsReader, isIndex, tdmsSize)
//	if err != nil {
//		log.Fatal(err)
//	}
//
// To write TDMS data, use a [Writer]. The writer accumulates property
// changes and channel data and emits a new segment whenever [Writer.Flush]
// is called, when it is closed, or when the pending raw data crosses an
// internal size threshold:
//
//	w, err := tdms.NewWriter("data.tdms")
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer w.Close()
//
//	if err := w.SetChannelProperty("group", "channel", "unit_string", "V"); err != nil {
//		log.Fatal(err)
//	}
//	if err := w.WriteFloat64("group", "channel", []float64{1, 2, 3}); err != nil {
//		log.Fatal(err)
//	}
//
// Use [WithWriter] to guarantee the writer is closed when a scope exits, and
// [RotatingWriter] when a single logical stream needs to be split across
// multiple files once it grows past a byte threshold.
package tdms
