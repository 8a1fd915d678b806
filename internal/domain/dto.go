package domain

type DirectionType string

const (
	DirectionDebit  DirectionType = "debit"
	DirectionCredit DirectionType = "credit"
)

type TransactionStatusType string

const (
	TransactionStatusProcessing TransactionStatusType = "processing"
	TransactionStatusSuccess    TransactionStatusType = "success"
	TransactionStatusFailed     TransactionStatusType = "failed"
)

type ServiceCategoryType string

const (
	ServiceCategoryAirtime     ServiceCategoryType = "airtime"
	ServiceCategoryData        ServiceCategoryType = "data"
	ServiceCategoryElectricity ServiceCategoryType = "electricity"
	ServiceCategoryCable       ServiceCategoryType = "cable"
	ServiceCategoryFunding     ServiceCategoryType = "funding"
	ServiceCategoryRefund      ServiceCategoryType = "refund"
)

type MarginType string

const (
	MarginTypeFixed      MarginType = "fixed"
	MarginTypePercentage MarginType = "percentage"
)
