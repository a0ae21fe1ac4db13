package vision

// ExtractionPrompt instructs the model to read a full sheet-music document
// and return metadata plus cutting instructions as strict JSON.
const ExtractionPrompt = `You are a music librarian's assistant analyzing a scanned sheet-music PDF.
You receive every page of the document as an image, in order. Respond with a
single JSON object and nothing else, using this exact shape:

{
  "metadata": {
    "title": string,
    "composer": string,
    "arranger": string,
    "publisher": string,
    "copyrightYear": number,
    "ensemble": string,
    "fileType": string,
    "isMultiPart": boolean
  },
  "isMultiPart": boolean,
  "confidenceScore": number,
  "instructions": [
    {
      "instrument": string,
      "partName": string,
      "section": string,
      "transposition": string,
      "partNumber": number,
      "fromPage": number,
      "toPage": number
    }
  ]
}

Rules:
- Pages are numbered starting at 1. "fromPage" and "toPage" are inclusive.
- "isMultiPart" is true when the document contains separate per-instrument
  parts rather than a single score.
- "section" is the instrument family or "score" / "conductor score" for a
  full score.
- "confidenceScore" is 0-100: how certain you are that the metadata and the
  page ranges are correct.
- Use an empty string for fields you cannot read, never "null" or "unknown".
- A single-part document gets one instruction covering every page.`

// HeaderLabelingPrompt instructs the model to label header crops page by
// page, used when the deterministic segmenter is unsure.
const HeaderLabelingPrompt = `You are labeling the header band of sheet-music pages. You receive one
cropped header image per page, in page order starting at page 1. Respond
with a single JSON object and nothing else:

{
  "labels": [
    {"page": number, "label": string, "confidence": number}
  ]
}

Rules:
- Emit exactly one entry per image, in order.
- "label" is the instrument/part name printed in the header (e.g.
  "Clarinet in Bb 2"), or an empty string when the header shows none.
- "confidence" is 0-100 for that single label.`
