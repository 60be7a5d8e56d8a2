// Package mrc decodes MRC2014 volumes, the file format used for cryo-ET
// tomograms and their segmentations.
//
// Supported data modes are 0 (int8), 1 (int16), 2 (float32), 6 (uint16)
// and 12 (float16). Every mode is decoded into a float32 slice ordered with
// x varying fastest. Byte order is taken from the header machine stamp.
//
// Files compressed with gzip or zstd are detected by their magic number and
// decompressed transparently.
package mrc
