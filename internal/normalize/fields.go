package normalize

// Field is a canonical transaction field.
type Field string

const (
	FieldID         Field = "id"
	FieldTitle      Field = "title"
	FieldAmount     Field = "amount"
	FieldDate       Field = "date"
	FieldKind       Field = "kind"
	FieldCategory   Field = "category"
	FieldMemo       Field = "memo"
	FieldLedger     Field = "ledger"
	FieldGroupID    Field = "groupId"
	FieldGroupTitle Field = "groupTitle"
)

// Mapping lists, per canonical field, the source keys to try in order.
// Lower-camel names come first; upper-snake alternates follow.
type Mapping map[Field][]string

// TransactionKeys is the adapter shared by every transaction source.
var TransactionKeys = Mapping{
	FieldID:       {"transId", "TRAN_ID", "TRANS_ID", "id"},
	FieldTitle:    {"title", "TITLE", "text"},
	FieldAmount:   {"originalAmount", "ORIGINAL_AMOUNT", "amount", "AMOUNT"},
	FieldDate:     {"transDate", "TRANS_DATE", "date", "DATE"},
	FieldKind:     {"type", "TYPE", "kind"},
	FieldCategory: {"category", "CATEGORY"},
	FieldMemo:     {"memo", "MEMO"},
	FieldLedger:   {"groupbId", "GROUPB_ID", "ledgerId"},
}

// MembershipKeys is the adapter for group-listing records.
var MembershipKeys = Mapping{
	FieldGroupID:    {"groupbId", "GROUPB_ID", "groupId"},
	FieldGroupTitle: {"title", "TITLE", "name"},
}
