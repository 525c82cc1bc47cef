// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package ledger

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/ManuGH/qrattend/internal/domain/attendance/model"
)

const (
	mongoAttendanceCollection = "attendance"
	mongoUsersCollection      = "users"
	mongoDayFormat            = "%Y-%m-%d"
)

type mongoRecord struct {
	ID      string             `bson:"_id"`
	Seq     primitive.ObjectID `bson:"seq"`
	Teacher string             `bson:"teacher"`
	Student string             `bson:"student"`
	Subject string             `bson:"subject"`
	Date    time.Time          `bson:"date"`
	Status  string             `bson:"status"`
}

type mongoUser struct {
	ID    string `bson:"_id"`
	Name  string `bson:"name"`
	Email string `bson:"email"`
}

type mongoRecordWithUser struct {
	mongoRecord `bson:",inline"`
	Users       []mongoUser `bson:"studentDoc"`
}

// MongoLedger stores attendance in MongoDB collections named attendance and users.
type MongoLedger struct {
	client     *mongo.Client
	attendance *mongo.Collection
	users      *mongo.Collection
}

// NewMongoLedger connects to uri and selects database.
func NewMongoLedger(ctx context.Context, uri, database string) (*MongoLedger, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("attendance ledger: mongo connect: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("attendance ledger: mongo ping: %w", err)
	}

	db := client.Database(database)
	l := &MongoLedger{
		client:     client,
		attendance: db.Collection(mongoAttendanceCollection),
		users:      db.Collection(mongoUsersCollection),
	}
	_, err = l.attendance.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "student", Value: 1}, {Key: "seq", Value: 1}}},
		{Keys: bson.D{{Key: "subject", Value: 1}, {Key: "seq", Value: 1}}},
		{Keys: bson.D{{Key: "teacher", Value: 1}}},
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("attendance ledger: mongo indexes: %w", err)
	}
	return l, nil
}

func (l *MongoLedger) Append(ctx context.Context, r *model.Record) error {
	doc := mongoRecord{
		ID:      r.ID,
		Seq:     primitive.NewObjectID(),
		Teacher: r.TeacherID,
		Student: r.StudentID,
		Subject: r.Subject,
		Date:    r.Date.UTC(),
		Status:  r.Status,
	}
	if _, err := l.attendance.InsertOne(ctx, doc); err != nil {
		return persistenceErr("append", err)
	}
	return nil
}

func (l *MongoLedger) ByStudent(ctx context.Context, studentID string) ([]model.StudentRecord, error) {
	return l.queryRecords(ctx, "by student", bson.D{{Key: "student", Value: studentID}})
}

func (l *MongoLedger) BySubject(ctx context.Context, subject string) ([]model.StudentRecord, error) {
	return l.queryRecords(ctx, "by subject", bson.D{{Key: "subject", Value: subject}})
}

func (l *MongoLedger) queryRecords(ctx context.Context, op string, match bson.D) ([]model.StudentRecord, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$sort", Value: bson.D{{Key: "seq", Value: 1}}}},
		{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: mongoUsersCollection},
			{Key: "localField", Value: "student"},
			{Key: "foreignField", Value: "_id"},
			{Key: "as", Value: "studentDoc"},
		}}},
	}
	cur, err := l.attendance.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, persistenceErr(op, err)
	}
	var docs []mongoRecordWithUser
	if err := cur.All(ctx, &docs); err != nil {
		return nil, persistenceErr(op, err)
	}

	out := make([]model.StudentRecord, 0, len(docs))
	for _, d := range docs {
		r := model.Record{
			ID:        d.ID,
			TeacherID: d.Teacher,
			StudentID: d.Student,
			Subject:   d.Subject,
			Date:      d.Date.UTC(),
			Status:    d.Status,
		}
		var u model.User
		if len(d.Users) > 0 {
			u = model.User{ID: d.Users[0].ID, Name: d.Users[0].Name, Email: d.Users[0].Email}
		}
		out = append(out, r.WithStudent(u))
	}
	return out, nil
}

func mongoDay() bson.D {
	return bson.D{{Key: "$dateToString", Value: bson.D{
		{Key: "format", Value: mongoDayFormat},
		{Key: "date", Value: "$date"},
		{Key: "timezone", Value: "UTC"},
	}}}
}

func (l *MongoLedger) TeacherDaily(ctx context.Context, teacherID string) ([]model.TeacherDay, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "teacher", Value: teacherID}}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: bson.D{
				{Key: "subject", Value: "$subject"},
				{Key: "date", Value: mongoDay()},
			}},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "_id.date", Value: -1}, {Key: "_id.subject", Value: 1}}}},
	}
	cur, err := l.attendance.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, persistenceErr("teacher daily", err)
	}
	out := []model.TeacherDay{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, persistenceErr("teacher daily", err)
	}
	return out, nil
}

func (l *MongoLedger) GlobalDaily(ctx context.Context) ([]model.GlobalDay, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: bson.D{
				{Key: "subject", Value: "$subject"},
				{Key: "teacher", Value: "$teacher"},
				{Key: "date", Value: mongoDay()},
			}},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
		{{Key: "$sort", Value: bson.D{
			{Key: "_id.date", Value: -1},
			{Key: "_id.subject", Value: 1},
			{Key: "_id.teacher", Value: 1},
		}}},
	}
	cur, err := l.attendance.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, persistenceErr("global daily", err)
	}
	out := []model.GlobalDay{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, persistenceErr("global daily", err)
	}
	return out, nil
}

func (l *MongoLedger) PutUser(ctx context.Context, u model.User) error {
	_, err := l.users.ReplaceOne(ctx,
		bson.D{{Key: "_id", Value: u.ID}},
		mongoUser{ID: u.ID, Name: u.Name, Email: u.Email},
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return persistenceErr("put user", err)
	}
	return nil
}

func (l *MongoLedger) Ping(ctx context.Context) error {
	return l.client.Ping(ctx, readpref.Primary())
}

func (l *MongoLedger) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return l.client.Disconnect(ctx)
}
