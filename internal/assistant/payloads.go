package assistant

// Postback payloads recognized by the deterministic command table. Quick
// replies and persistent-menu buttons trigger these; free text never
// collides with them because customers don't type underscored constants.
const (
	PayloadHandoverToHuman    = "HANDOVER_TO_HUMAN"
	PayloadShowCategories     = "SHOW_PRODUCT_CATEGORIES"
	PayloadShowPaymentMethods = "SHOW_ALL_PAYMENT_METHODS"

	PayloadCreateOrderFlow  = "CREATE_NEW_ORDER_FLOW"
	PayloadManageOrderFlow  = "MANAGE_ORDER_FLOW"
	PayloadCheckOrderStatus = "CHECK_ORDER_STATUS_FLOW"
	PayloadUpdateOrderFlow  = "UPDATE_ORDER_FLOW"
	PayloadCancelOrderFlow  = "CANCEL_ORDER_FLOW"

	PayloadCreateBookingFlow  = "CREATE_NEW_BOOKING_FLOW"
	PayloadManageBookingFlow  = "MANAGE_BOOKING_FLOW"
	PayloadCheckBookingStatus = "CHECK_BOOKING_STATUS_FLOW"

	PayloadUpdateAddress = "UPDATE_SHIPPING_ADDRESS"
	PayloadUpdatePhone   = "UPDATE_PHONE_NUMBER"
	PayloadConfirmCancel = "CONFIRM_CANCELLATION"
	PayloadAbortCancel   = "ABORT_CANCELLATION"

	PayloadContinueShopping   = "CONTINUE_SHOPPING"
	PayloadAskAnotherQuestion = "ASK_ANOTHER_QUESTION"
	PayloadBrowseNewArrivals  = "BROWSE_NEW_ARRIVALS"
)

// Prefix payloads carry an identifier (or category name) after the prefix.
const (
	PrefixProductInfo  = "PRODUCT_INFO_ID_"
	PrefixPaymentInfo  = "PAYMENT_INFO_ID_"
	PrefixKnowledge    = "KNOWLEDGE_SECTION_"
	PrefixShowCategory = "show me "
)
