package repositoryimpl

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Xamyrz/task-bot-discord/internal/task"
	"github.com/Xamyrz/task-bot-discord/pkg/cerr"
)

const (
	tasksCollection = "tasks"
	usersCollection = "users"
)

// MongoRepository is the production document store, keeping the
// collection layout of the historical deployment.
type MongoRepository struct {
	tasks *mongo.Collection
	users *mongo.Collection
}

func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{
		tasks: db.Collection(tasksCollection),
		users: db.Collection(usersCollection),
	}
}

type userAssignment struct {
	UserID   string   `bson:"user_id"`
	ServerID string   `bson:"server_id"`
	Tasks    []string `bson:"tasks_assigned"`
}

func nameFilter(serverID, name string) bson.M {
	return bson.M{"server_id": serverID, "task_name": name}
}

func (r *MongoRepository) FindByName(ctx context.Context, serverID, name string) (*task.Task, error) {
	var t task.Task
	err := r.tasks.FindOne(ctx, nameFilter(serverID, name)).Decode(&t)
	if err != nil {
		return nil, wrapReadError("task", err)
	}
	return &t, nil
}

func (r *MongoRepository) NameExists(ctx context.Context, serverID, name string) (bool, error) {
	count, err := r.tasks.CountDocuments(ctx, nameFilter(serverID, name), options.Count().SetLimit(1))
	if err != nil {
		return false, wrapReadError("task", err)
	}
	return count > 0, nil
}

func (r *MongoRepository) FindIncomplete(ctx context.Context) ([]*task.Task, error) {
	return r.findTasks(ctx, bson.M{"task_complete": false})
}

func (r *MongoRepository) FindDueWithin(ctx context.Context, until time.Time) ([]*task.Task, error) {
	// $lte against a date value is type-bracketed, so documents with a
	// missing or non-date deadline never match.
	return r.findTasks(ctx, bson.M{
		"task_complete": false,
		"deadline":      bson.M{"$lte": until},
	})
}

func (r *MongoRepository) findTasks(ctx context.Context, filter bson.M) ([]*task.Task, error) {
	cursor, err := r.tasks.Find(ctx, filter)
	if err != nil {
		return nil, wrapReadError("tasks", err)
	}
	defer cursor.Close(ctx)
	var out []*task.Task
	for cursor.Next(ctx) {
		var t task.Task
		if err := cursor.Decode(&t); err != nil {
			return nil, cerr.NewError(cerr.Internal, "server error", fmt.Errorf("failed to decode task: %w", err))
		}
		out = append(out, &t)
	}
	if err := cursor.Err(); err != nil {
		return nil, wrapReadError("tasks", err)
	}
	return out, nil
}

func (r *MongoRepository) Upsert(ctx context.Context, t *task.Task) error {
	data, err := bson.Marshal(t)
	if err != nil {
		return cerr.NewError(cerr.Internal, "server error", fmt.Errorf("failed to marshal task: %w", err))
	}
	var doc bson.M
	if err := bson.Unmarshal(data, &doc); err != nil {
		return cerr.NewError(cerr.Internal, "server error", fmt.Errorf("failed to remarshal task: %w", err))
	}
	delete(doc, "_id")
	_, err = r.tasks.UpdateOne(ctx, nameFilter(t.ServerID, t.Name),
		bson.M{"$set": doc}, options.Update().SetUpsert(true))
	if err != nil {
		return wrapWriteError("task", err)
	}
	return nil
}

func (r *MongoRepository) SetCompletion(ctx context.Context, serverID, name string, complete bool) error {
	_, err := r.tasks.UpdateOne(ctx, nameFilter(serverID, name),
		bson.M{"$set": bson.M{"task_complete": complete}})
	if err != nil {
		return wrapWriteError("task", err)
	}
	return nil
}

func (r *MongoRepository) SetNotified(ctx context.Context, serverID, name string, threshold task.Threshold, at time.Time) error {
	patch := bson.M{"date_notified": at}
	switch threshold {
	case task.Threshold1Day:
		patch["day_1_notified"] = true
	case task.Threshold7Day:
		patch["days_7_notified"] = true
	}
	_, err := r.tasks.UpdateOne(ctx, nameFilter(serverID, name), bson.M{"$set": patch})
	if err != nil {
		return wrapWriteError("task", err)
	}
	return nil
}

func (r *MongoRepository) AssignedUsers(ctx context.Context, serverID, name string) ([]string, error) {
	cursor, err := r.users.Find(ctx, bson.M{"server_id": serverID, "tasks_assigned": name})
	if err != nil {
		return nil, wrapReadError("user assignments", err)
	}
	defer cursor.Close(ctx)
	var users []string
	for cursor.Next(ctx) {
		var ua userAssignment
		if err := cursor.Decode(&ua); err != nil {
			return nil, cerr.NewError(cerr.Internal, "server error", fmt.Errorf("failed to decode user assignment: %w", err))
		}
		users = append(users, ua.UserID)
	}
	if err := cursor.Err(); err != nil {
		return nil, wrapReadError("user assignments", err)
	}
	return users, nil
}

func (r *MongoRepository) AddUserAssignments(ctx context.Context, serverID, name string, userIDs []string) error {
	for _, userID := range userIDs {
		_, err := r.users.UpdateOne(ctx,
			bson.M{"user_id": userID, "server_id": serverID},
			bson.M{"$addToSet": bson.M{"tasks_assigned": name}},
			options.Update().SetUpsert(true))
		if err != nil {
			return wrapWriteError("user assignment", err)
		}
	}
	return nil
}

func wrapReadError(target string, err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return cerr.NewError(cerr.NotFound, fmt.Sprintf("%s not found", target), err)
	}
	return cerr.NewError(cerr.Internal, "server error", fmt.Errorf("failed to read %s: %w", target, err))
}

func wrapWriteError(target string, err error) error {
	return cerr.NewError(cerr.Internal, "server error", fmt.Errorf("failed to write %s: %w", target, err))
}
