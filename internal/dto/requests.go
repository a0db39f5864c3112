package dto

// PostEarningRequest входящее уведомление от сервиса заказов о завершённой покупке.
// Суммы в минорных единицах валюты.
type PostEarningRequest struct {
	InstructorID string `json:"instructor_id" binding:"required,uuid"`
	OrderID      string `json:"order_id" binding:"required,uuid"`
	Amount       int64  `json:"amount" binding:"required,gt=0"`
}

// PostRefundRequest входящее уведомление от сервиса заказов о возврате.
type PostRefundRequest struct {
	InstructorID string `json:"instructor_id" binding:"required,uuid"`
	OrderID      string `json:"order_id" binding:"required,uuid"`
	Amount       int64  `json:"amount" binding:"required,gt=0"`
}

// CreateWithdrawalRequest заявка преподавателя на вывод средств.
type CreateWithdrawalRequest struct {
	Amount        int64  `json:"amount" binding:"required,gt=0"`
	BankName      string `json:"bank_name" binding:"required"`
	AccountNumber string `json:"account_number" binding:"required"`
	AccountHolder string `json:"account_holder" binding:"required"`
}

// RejectWithdrawalRequest причина отклонения заявки администратором.
type RejectWithdrawalRequest struct {
	Reason string `json:"reason" binding:"required"`
}
