package constants

// Share split applied by the ledger on every service payment: the doctor
// keeps DoctorSharePercent, the platform account takes the rest.
const (
	DoctorSharePercent int64 = 30
	AdminSharePercent  int64 = 70
)

// VNPay protocol constants.
const (
	VNPayVersion     = "2.1.0"
	VNPayCommandPay  = "pay"
	VNPayCurrency    = "VND"
	VNPayLocale      = "vn"
	VNPayOrderType   = "billpayment"
	VNPaySuccessCode = "00"
)
