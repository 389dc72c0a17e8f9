// Package ocr turns a snapshot into plate text.
//
// A Reader owns one Engine, built once at process start. For every image it
// runs a fixed preprocessing pipeline (grayscale, bilateral smoothing with
// diameter 11 and sigmas 17/17, back to three channels), asks the engine for
// text regions, drops regions with confidence <= 0.40 or fewer than three
// characters, and joins the survivors with single spaces. The joined text is
// normalized with utils.NormalizePlate to produce the matching key.
//
// Engines:
//   - CommandEngine runs an external recognizer (for example an EasyOCR
//     wrapper) on a temporary PNG and parses its JSON output.
//   - RekognitionEngine calls AWS Rekognition DetectText.
package ocr
