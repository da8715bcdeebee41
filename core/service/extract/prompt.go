package extract

import "fmt"

func billPrompt(body string) string {
	return fmt.Sprintf(`You extract utility bill details from plain text emails.

Return STRICT JSON with exactly these keys:
- provider
- bill_period_start
- bill_period_end
- amount
- currency
- due_date
- usage_kwh

Rules:
- Dates in ISO format: YYYY-MM-DD
- Numbers as raw numbers (no currency symbols, no commas)
- If a field is missing or not clear, use null.

Email text:
"""%s"""
`, body)
}

func paymentPrompt(body string) string {
	return fmt.Sprintf(`You analyze direct debit notification emails.

Extract ONLY these three fields:

1. merchant_name: The name of the business or person after the phrase "Your Direct Debit payment to".
2. payment_date: The date the email was received (ISO format YYYY-MM-DD).
3. amount_gbp: The amount charged in GBP (numeric).

Rules:
- Return STRICT JSON only.
- If something is missing, return null.
- amount_gbp must be a number (no currency symbol).
- merchant_name is the text that appears directly after "Your Direct Debit payment to".
- Do NOT infer anything not stated.

Email text:
"""%s"""
`, body)
}
