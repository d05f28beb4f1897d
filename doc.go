// Package psd implements a lossless codec for Photoshop documents
// (.psd) and their large-document variant (.psb).
//
// The package round-trips the document structure bit-for-bit: header,
// color palette, image resources, the layer list with masks and
// additional-info records, and per-channel pixel data under Raw,
// PackBits, Zip and Zip-with-prediction compression. Unknown resource
// ids and additional-info keys are preserved as opaque bytes.
//
// Loading:
//
//	doc, err := psd.Load(reader)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, layer := range doc.Layers {
//	    _ = layer.Channel(0).Pixels()
//	}
//
// Saving:
//
//	err := psd.Save(writer, doc, &psd.SaveOptions{Compression: psd.CompressionRLE})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Layers are stored bottom to top with groups encoded as sentinel
// layers; ImportSections and ExportSections convert between that flat
// list and an explicit begin/end bracketed structure.
package psd
