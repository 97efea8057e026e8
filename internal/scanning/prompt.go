package scanning

import "strings"

// receiptScanPrompt is the shared instruction used by all model backends
const receiptScanPrompt = `You are analyzing a photo of a receipt. Carefully read all text in the image and extract the following information:

1. **merchant**: The store or business name, usually the largest text at the top of the receipt.

2. **date**: The transaction date, converted to ISO 8601 format (YYYY-MM-DD).

3. **total**: The final amount paid ("TOTAL", "Amount Due", "Grand Total"). Extract only the numeric value (e.g., 42.75 for $42.75).

4. **category**: The most reasonable category for this expense. It must be exactly one of: Food & Dining, Shopping, Travel, Health, Utilities, Entertainment, Other.

Return ONLY valid JSON in this exact format:
{
  "merchant": "Store Name",
  "date": "YYYY-MM-DD",
  "total": 0.00,
  "category": "Other"
}

Important:
- The total must be a number (not a string)
- If you cannot find a field, use null for that field
- Do not include any text before or after the JSON
- Do not use markdown code blocks`

// stripCodeFence removes a surrounding markdown code block if present
func stripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}
