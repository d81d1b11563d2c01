package model

// VoteObject 可投票的对象类型
type VoteObject string

const (
	VoteObjectQuestion VoteObject = "question"
	VoteObjectAnswer   VoteObject = "answer"
)

// Valid 校验对象类型
func (o VoteObject) Valid() bool {
	return o == VoteObjectQuestion || o == VoteObjectAnswer
}

// Vote 投票记录表，对应 votes
// 每个用户对同一对象至多一条记录，VoteType 为 1 或 -1
type Vote struct {
	VoteID     string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"vote_id"`
	ObjectID   string     `gorm:"type:uuid;not null;uniqueIndex:uk_votes_object_user" json:"object_id"`
	ObjectType VoteObject `gorm:"type:varchar(20);not null"                      json:"object_type"`
	UserID     string     `gorm:"type:uuid;not null;uniqueIndex:uk_votes_object_user" json:"user_id"`
	VoteType   int        `gorm:"type:smallint;not null"                         json:"vote_type"`
	BaseModel
}

// TableName 指定表名
func (Vote) TableName() string { return "votes" }

// NextVote 在已有投票 prev 上再投 direction 后的结果：同向撤销，反向改投
func NextVote(prev, direction int) int {
	if prev == direction {
		return 0
	}
	return direction
}
