// Package schema holds the static description of the invoice database that is
// embedded in every SQL generation prompt.
package schema

import (
	"fmt"
	"strings"
)

// Tables lists the tables of the invoice database in prompt order
var Tables = []string{"Vendor", "Customer", "Invoice", "LineItem", "Payment"}

// Description is the schema text given to the model. Relationships follow the
// foreign keys of the Prisma model the database was created from.
const Description = `Database Schema:

Table: Vendor
Columns: id (PK), name, taxId, address, externalId
Relationships: Has many Invoice

Table: Customer
Columns: id (PK), name, address, externalId
Relationships: Has many Invoice

Table: Invoice
Columns: id (PK), invoiceCode, invoiceDate, deliveryDate, documentType, totalAmount, subTotal, totalTax, currency, vendorId (FK to Vendor), customerId (FK to Customer)
Relationships: Belongs to Vendor, Belongs to Customer, Has many LineItem, Has many Payment

Table: LineItem
Columns: id (PK), invoiceId (FK to Invoice), description, quantity, unitPrice, totalPrice, sachkonto, buschluessel, vatRate, vatAmount
Relationships: Belongs to Invoice

Table: Payment
Columns: id (PK), invoiceId (FK to Invoice), dueDate, bankAccountNumber, discountedTotal, paymentTerms, netDays, discountPercentage
Relationships: Belongs to Invoice
`

// Example is a worked question/SQL pair shown to the model
type Example struct {
	Question string
	SQL      string
}

var Examples = []Example{
	{
		Question: "Show me all invoices",
		SQL:      `SELECT * FROM "Invoice"`,
	},
	{
		Question: "Get invoices with their customer names",
		SQL:      `SELECT i.*, c.name as customer_name FROM "Invoice" i JOIN "Customer" c ON i."customerId" = c.id`,
	},
	{
		Question: "Find invoices where invoice code is ABC123",
		SQL:      `SELECT * FROM "Invoice" WHERE "invoiceCode" = 'ABC123'`,
	},
	{
		Question: "Show line items for invoice id 5",
		SQL:      `SELECT * FROM "LineItem" WHERE "invoiceId" = 5`,
	},
	{
		Question: "Get total amount by vendor",
		SQL:      `SELECT v.name, SUM(i."totalAmount") as total FROM "Invoice" i JOIN "Vendor" v ON i."vendorId" = v.id GROUP BY v.name`,
	},
}

const rules = `CRITICAL RULES:
1. ALL table names MUST use double quotes: "Invoice", "Customer", "Vendor", "LineItem", "Payment"
2. ALL camelCase column names MUST use double quotes: "invoiceCode", "customerId", "totalAmount"
3. Simple lowercase columns (id, name, description, address) do NOT need quotes
4. Use EXACT spelling from schema - case matters!
5. Return ONLY the SQL query with no explanations, no markdown, no extra text`

var systemPrompt = buildSystemPrompt()

// SystemPrompt returns the fixed system instruction for SQL generation
func SystemPrompt() string {
	return systemPrompt
}

func buildSystemPrompt() string {
	var sb strings.Builder
	sb.WriteString("You are a PostgreSQL expert that converts natural language questions into SQL queries.\n\n")
	sb.WriteString("DB Schema: ")
	sb.WriteString(Description)
	sb.WriteString("\nEXAMPLES OF CORRECT QUERIES:\n")
	for i, ex := range Examples {
		sb.WriteString(fmt.Sprintf("\nExample %d:\nQuestion: %q\nSQL: %s\n", i+1, ex.Question, ex.SQL))
	}
	sb.WriteString("\n")
	sb.WriteString(rules)
	sb.WriteString("\n")
	return sb.String()
}
