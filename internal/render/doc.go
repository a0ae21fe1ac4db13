// Package render prepares page images and text-layer headers for the vision
// and segmentation stages. Rasterization shells out to pdftoppm; header text
// comes from the PDF text layer when one exists.
package render
