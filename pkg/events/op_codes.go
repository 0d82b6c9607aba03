package events

// Wire format: msgpack-encoded payload with the op code appended as the
// final byte, published on the shared redis channel.

const (
	OpPostUpdated uint8 = 0

	OpMessageCreated uint8 = 1
	OpMessageUpdated uint8 = 2
	OpMessageDeleted uint8 = 3

	OpConversationUpdated uint8 = 4

	OpUnreadCount uint8 = 5

	OpRetryQueued uint8 = 6
	OpRetrySent   uint8 = 7

	OpFeedRefreshed    uint8 = 8
	OpProfileRefreshed uint8 = 9

	OpSessionUpdated uint8 = 10
)
