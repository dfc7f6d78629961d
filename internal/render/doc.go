// Package render rasterizes PDF documents into page images.
//
// Rendering uses MuPDF through github.com/gen2brain/go-fitz. Pages are
// rendered one at a time at a fixed DPI and JPEG-encoded, so the same input
// bytes always produce the same pages in the same order.
package render
