package tonapi

// AccountAddress identifies a TON account in API responses.
type AccountAddress struct {
	Address string `json:"address"`
	IsScam  bool   `json:"is_scam"`
}

// DecodedBody carries the decoded payload of a message. For plain transfer
// comments the op name is "text_comment" and Text holds the comment.
type DecodedBody struct {
	Text string `json:"text"`
}

// Message is an inbound or outbound message attached to a transaction.
type Message struct {
	MsgType       string          `json:"msg_type"`
	Value         int64           `json:"value"` // nanoton
	Source        *AccountAddress `json:"source,omitempty"`
	Destination   *AccountAddress `json:"destination,omitempty"`
	DecodedOpName string          `json:"decoded_op_name"`
	DecodedBody   DecodedBody     `json:"decoded_body"`
}

// Transaction is one account transaction as returned by the API.
type Transaction struct {
	Hash    string   `json:"hash"`
	Lt      int64    `json:"lt"`
	Utime   int64    `json:"utime"`
	Success bool     `json:"success"`
	InMsg   *Message `json:"in_msg,omitempty"`
}

// transactionsResponse is the envelope of the account transactions endpoint.
type transactionsResponse struct {
	Transactions []Transaction `json:"transactions"`
}

// errorResponse is the API's error envelope.
type errorResponse struct {
	Error string `json:"error"`
}
