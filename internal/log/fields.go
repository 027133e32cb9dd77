package log

import "github.com/shopspring/decimal"

// Attribute keys shared by every component.
const (
	FieldComponent     = "component"
	FieldRequestID     = "request_id"
	FieldClientIP      = "client_ip"
	FieldMethod        = "method"
	FieldPath          = "path"
	FieldQuery         = "query"
	FieldStatusCode    = "status_code"
	FieldDuration      = "duration_ms"
	FieldUserAgent     = "user_agent"
	FieldError         = "error"
	FieldOperation     = "operation"
	FieldAmount        = "amount"
	FieldCategoryID    = "category_id"
	FieldPaymentID     = "payment_id"
	FieldTransactionID = "transaction_id"
	FieldRemaining     = "remaining"
	FieldTotalBalance  = "total_balance"
)

const (
	ComponentApp       = "app"
	ComponentHTTP      = "http"
	ComponentEngine    = "engine"
	ComponentScheduler = "scheduler"
	ComponentAMQP      = "amqp"
	ComponentWorker    = "worker"
	ComponentSheets    = "sheets"
	ComponentNotify    = "notify"
	ComponentCache     = "cache"
	ComponentSecurity  = "security"
	ComponentTrace     = "trace"
	ComponentBackend   = "backend"
)

// Values of FieldOperation, one per budget mutation.
const (
	OpIncome          = "add_income"
	OpWithdraw        = "withdraw"
	OpPayment         = "make_payment"
	OpSchedule        = "schedule_payment"
	OpToggleScheduled = "toggle_scheduled"
	OpCancelScheduled = "cancel_scheduled"
	OpAddCategory     = "add_category"
	OpUpdateCategory  = "update_category"
	OpDeleteCategory  = "delete_category"
	OpPriorities      = "update_priorities"
	OpMoveCategory    = "move_category"
	OpTick            = "scheduler_tick"
	OpLoad            = "load"
	OpSave            = "save"
	OpPublish         = "publish"
)

// LogFields collects attributes before they are handed to slog.
type LogFields map[string]any

func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithRequestID(id string) LogFields {
	if id != "" {
		f[FieldRequestID] = id
	}
	return f
}

func (f LogFields) WithClientIP(ip string) LogFields {
	f[FieldClientIP] = ip
	return f
}

// WithAmount records amount with two decimals, as shown to the user.
func (f LogFields) WithAmount(amount decimal.Decimal) LogFields {
	f[FieldAmount] = amount.StringFixed(2)
	return f
}

func (f LogFields) WithCategory(id string) LogFields {
	if id != "" {
		f[FieldCategoryID] = id
	}
	return f
}

func (f LogFields) WithHTTPRequest(method, path, query, userAgent string) LogFields {
	f[FieldMethod] = method
	f[FieldPath] = path
	if query != "" {
		f[FieldQuery] = query
	}
	if userAgent != "" {
		f[FieldUserAgent] = userAgent
	}
	return f
}

func (f LogFields) WithHTTPResponse(status int, duration int64) LogFields {
	f[FieldStatusCode] = status
	f[FieldDuration] = duration
	return f
}

func (f LogFields) ToSlice() []any {
	out := make([]any, 0, len(f)*2)
	for k, v := range f {
		out = append(out, k, v)
	}
	return out
}
