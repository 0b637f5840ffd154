package request

// PrintRequest optionally names the cashier printed on the receipt
type PrintRequest struct {
	Cashier string `json:"cashier" binding:"omitempty,max=100"`
}
