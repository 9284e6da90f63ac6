package order

import "time"

// DisplayStatus 展示状态：存储状态加上两个仅用于展示的叠加值
type DisplayStatus string

const (
	DisplayCancelRequestPending DisplayStatus = "CANCEL_REQUEST_PENDING"
	DisplayExpired              DisplayStatus = "EXPIRED"
)

// DeriveDisplayStatus 展示状态的唯一推导函数，所有列表和详情都经由这里
//   - PAID 且存在待处理取消申请 -> CANCEL_REQUEST_PENDING
//   - CREATED 且已过支付截止时间 -> EXPIRED
//   - CANCELLED_BY_USER 且由系统自动取消 -> EXPIRED
//   - 其他情况原样返回存储状态
func DeriveDisplayStatus(stored Status, hasPendingCancel, pastDeadline, autoCancelled bool) DisplayStatus {
	switch {
	case stored == StatusPaid && hasPendingCancel:
		return DisplayCancelRequestPending
	case stored == StatusCreated && pastDeadline:
		return DisplayExpired
	case stored == StatusCancelledByUser && autoCancelled:
		return DisplayExpired
	}
	return DisplayStatus(stored)
}

// DisplayStatus 按当前时间推导订单的展示状态
func (o *MerchantOrder) DisplayStatus(now time.Time, hasPendingCancel bool) DisplayStatus {
	return DeriveDisplayStatus(o.status, hasPendingCancel, o.IsExpired(now), o.WasAutoCancelled())
}
