package sqlxrepos

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/brainypal/backend/core/study"
)

type studyRepository struct {
	db *sqlx.DB
}

var _ study.Repository = (*studyRepository)(nil)

func NewStudyRepository(db *sqlx.DB) *studyRepository {
	return &studyRepository{db: db}
}

const flashcardCols = `id, user_id, question, answer, topic, difficulty, source,
	mastery_level, times_reviewed, correct_reviews, last_reviewed, created_at,
	srs_due, srs_stability, srs_difficulty, srs_elapsed_days, srs_scheduled_days,
	srs_reps, srs_lapses, srs_state, srs_last_review`

func (repo *studyRepository) CreateFlashcards(ctx context.Context, cards []study.Flashcard) ([]study.Flashcard, error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "beginning tx")
	}
	defer func() { _ = tx.Rollback() }()

	query := `
	INSERT INTO flashcard (user_id, question, answer, topic, difficulty, source,
		mastery_level, times_reviewed, correct_reviews, last_reviewed, created_at,
		srs_due, srs_stability, srs_difficulty, srs_elapsed_days, srs_scheduled_days,
		srs_reps, srs_lapses, srs_state, srs_last_review)
	VALUES (:user_id, :question, :answer, :topic, :difficulty, :source,
		:mastery_level, :times_reviewed, :correct_reviews, :last_reviewed, :created_at,
		:srs_due, :srs_stability, :srs_difficulty, :srs_elapsed_days, :srs_scheduled_days,
		:srs_reps, :srs_lapses, :srs_state, :srs_last_review)
	RETURNING id`

	stmt, err := tx.PrepareNamedContext(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, "preparing flashcard insert")
	}
	defer stmt.Close()

	for i := range cards {
		if err = stmt.GetContext(ctx, &cards[i].ID, cards[i]); err != nil {
			return nil, errors.Wrap(err, "inserting flashcard")
		}
	}
	return cards, errors.Wrap(tx.Commit(), "committing flashcards")
}

func (repo *studyRepository) GetFlashcard(ctx context.Context, id, userID int) (study.Flashcard, error) {
	var card study.Flashcard
	query := `SELECT ` + flashcardCols + ` FROM flashcard WHERE id = $1 AND user_id = $2`
	err := repo.db.GetContext(ctx, &card, query, id, userID)
	if err == sql.ErrNoRows {
		return study.Flashcard{}, study.ErrFlashcardNotFound
	}
	return card, errors.Wrap(err, "getting flashcard")
}

func (repo *studyRepository) QueryFlashcards(ctx context.Context, userID int, topic string) ([]study.Flashcard, error) {
	query := `SELECT ` + flashcardCols + ` FROM flashcard WHERE user_id = $1`
	args := []interface{}{userID}
	if topic != "" {
		query += ` AND topic ILIKE $2`
		args = append(args, topic)
	}
	query += ` ORDER BY created_at DESC`

	cards := make([]study.Flashcard, 0)
	err := repo.db.SelectContext(ctx, &cards, query, args...)
	return cards, errors.Wrap(err, "querying flashcards")
}

func (repo *studyRepository) QueryDueFlashcards(ctx context.Context, userID int, due time.Time, limit int) ([]study.Flashcard, error) {
	query := `SELECT ` + flashcardCols + ` FROM flashcard
	WHERE user_id = $1 AND srs_due <= $2
	ORDER BY srs_due
	LIMIT $3`

	cards := make([]study.Flashcard, 0)
	err := repo.db.SelectContext(ctx, &cards, query, userID, due, limit)
	return cards, errors.Wrap(err, "querying due flashcards")
}

func (repo *studyRepository) UpdateFlashcard(ctx context.Context, card study.Flashcard) error {
	query := `
	UPDATE flashcard
	SET mastery_level = :mastery_level, times_reviewed = :times_reviewed,
		correct_reviews = :correct_reviews, last_reviewed = :last_reviewed,
		srs_due = :srs_due, srs_stability = :srs_stability, srs_difficulty = :srs_difficulty,
		srs_elapsed_days = :srs_elapsed_days, srs_scheduled_days = :srs_scheduled_days,
		srs_reps = :srs_reps, srs_lapses = :srs_lapses, srs_state = :srs_state,
		srs_last_review = :srs_last_review
	WHERE id = :id AND user_id = :user_id`

	res, err := repo.db.NamedExecContext(ctx, query, card)
	if err != nil {
		return errors.Wrap(err, "updating flashcard")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return study.ErrFlashcardNotFound
	}
	return nil
}

func (repo *studyRepository) CountFlashcards(ctx context.Context, userID int) (int, error) {
	var count int
	err := repo.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM flashcard WHERE user_id = $1`, userID)
	return count, errors.Wrap(err, "counting flashcards")
}

func (repo *studyRepository) RecentFlashcards(ctx context.Context, userID, limit int) ([]study.Flashcard, error) {
	query := `SELECT ` + flashcardCols + ` FROM flashcard WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`
	cards := make([]study.Flashcard, 0)
	err := repo.db.SelectContext(ctx, &cards, query, userID, limit)
	return cards, errors.Wrap(err, "querying recent flashcards")
}

func (repo *studyRepository) RecentFlashcardsSince(ctx context.Context, userID int, since time.Time, limit int) ([]study.Flashcard, error) {
	query := `SELECT ` + flashcardCols + ` FROM flashcard
	WHERE user_id = $1 AND created_at >= $2
	ORDER BY created_at DESC
	LIMIT $3`

	cards := make([]study.Flashcard, 0)
	err := repo.db.SelectContext(ctx, &cards, query, userID, since, limit)
	return cards, errors.Wrap(err, "querying recent flashcards")
}

func (repo *studyRepository) SearchFlashcards(ctx context.Context, userID int, q string, limit int) ([]study.Flashcard, error) {
	query := `SELECT ` + flashcardCols + ` FROM flashcard
	WHERE user_id = $1 AND (question ILIKE $2 OR answer ILIKE $2 OR topic ILIKE $2)
	ORDER BY created_at DESC
	LIMIT $3`

	cards := make([]study.Flashcard, 0)
	err := repo.db.SelectContext(ctx, &cards, query, userID, "%"+q+"%", limit)
	return cards, errors.Wrap(err, "searching flashcards")
}

type quizQuestionRow struct {
	ID            int    `db:"id"`
	QuizID        int    `db:"quiz_id"`
	Question      string `db:"question"`
	QuestionType  string `db:"question_type"`
	Options       []byte `db:"options"`
	CorrectAnswer string `db:"correct_answer"`
	Explanation   string `db:"explanation"`
	Points        int    `db:"points"`
}

func (r quizQuestionRow) toQuestion() (study.QuizQuestion, error) {
	q := study.QuizQuestion{
		ID:            r.ID,
		QuizID:        r.QuizID,
		Question:      r.Question,
		QuestionType:  r.QuestionType,
		CorrectAnswer: r.CorrectAnswer,
		Explanation:   r.Explanation,
		Points:        r.Points,
	}
	if len(r.Options) > 0 {
		if err := json.Unmarshal(r.Options, &q.Options); err != nil {
			return study.QuizQuestion{}, errors.Wrap(err, "decoding question options")
		}
	}
	return q, nil
}

func (repo *studyRepository) CreateQuiz(ctx context.Context, quiz study.Quiz) (study.Quiz, error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return study.Quiz{}, errors.Wrap(err, "beginning tx")
	}
	defer func() { _ = tx.Rollback() }()

	query := `
	INSERT INTO quiz (user_id, title, topic, difficulty, quiz_type, source, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	RETURNING id`
	err = tx.QueryRowxContext(ctx, query,
		quiz.UserID, quiz.Title, quiz.Topic, quiz.Difficulty, quiz.QuizType, quiz.Source, quiz.CreatedAt,
	).Scan(&quiz.ID)
	if err != nil {
		return study.Quiz{}, errors.Wrap(err, "inserting quiz")
	}

	qQuery := `
	INSERT INTO quiz_question (quiz_id, question, question_type, options, correct_answer, explanation, points)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	RETURNING id`
	for i := range quiz.Questions {
		quiz.Questions[i].QuizID = quiz.ID
		var opts []byte
		if len(quiz.Questions[i].Options) > 0 {
			if opts, err = json.Marshal(quiz.Questions[i].Options); err != nil {
				return study.Quiz{}, errors.Wrap(err, "encoding question options")
			}
		}
		err = tx.QueryRowxContext(ctx, qQuery,
			quiz.ID, quiz.Questions[i].Question, quiz.Questions[i].QuestionType, opts,
			quiz.Questions[i].CorrectAnswer, quiz.Questions[i].Explanation, quiz.Questions[i].Points,
		).Scan(&quiz.Questions[i].ID)
		if err != nil {
			return study.Quiz{}, errors.Wrap(err, "inserting quiz question")
		}
	}
	return quiz, errors.Wrap(tx.Commit(), "committing quiz")
}

const quizCols = `id, user_id, title, topic, difficulty, quiz_type, source, created_at`

func (repo *studyRepository) GetQuiz(ctx context.Context, id, userID int) (study.Quiz, error) {
	var quiz study.Quiz
	err := repo.db.GetContext(ctx, &quiz, `SELECT `+quizCols+` FROM quiz WHERE id = $1 AND user_id = $2`, id, userID)
	if err == sql.ErrNoRows {
		return study.Quiz{}, study.ErrQuizNotFound
	}
	if err != nil {
		return study.Quiz{}, errors.Wrap(err, "getting quiz")
	}

	var rows []quizQuestionRow
	qQuery := `SELECT id, quiz_id, question, question_type, options, correct_answer, explanation, points
	FROM quiz_question WHERE quiz_id = $1 ORDER BY id`
	if err = repo.db.SelectContext(ctx, &rows, qQuery, quiz.ID); err != nil {
		return study.Quiz{}, errors.Wrap(err, "querying quiz questions")
	}
	quiz.Questions = make([]study.QuizQuestion, 0, len(rows))
	for _, row := range rows {
		q, err := row.toQuestion()
		if err != nil {
			return study.Quiz{}, err
		}
		quiz.Questions = append(quiz.Questions, q)
	}
	return quiz, nil
}

func (repo *studyRepository) QueryQuizzes(ctx context.Context, userID int, topic string) ([]study.Quiz, error) {
	query := `SELECT ` + quizCols + ` FROM quiz WHERE user_id = $1`
	args := []interface{}{userID}
	if topic != "" {
		query += ` AND topic ILIKE $2`
		args = append(args, topic)
	}
	query += ` ORDER BY created_at DESC`

	quizzes := make([]study.Quiz, 0)
	err := repo.db.SelectContext(ctx, &quizzes, query, args...)
	return quizzes, errors.Wrap(err, "querying quizzes")
}

func (repo *studyRepository) CountQuizzes(ctx context.Context, userID int) (int, error) {
	var count int
	err := repo.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM quiz WHERE user_id = $1`, userID)
	return count, errors.Wrap(err, "counting quizzes")
}

func (repo *studyRepository) RecentQuizzesSince(ctx context.Context, userID int, since time.Time, limit int) ([]study.Quiz, error) {
	query := `SELECT ` + quizCols + ` FROM quiz
	WHERE user_id = $1 AND created_at >= $2
	ORDER BY created_at DESC
	LIMIT $3`

	quizzes := make([]study.Quiz, 0)
	err := repo.db.SelectContext(ctx, &quizzes, query, userID, since, limit)
	return quizzes, errors.Wrap(err, "querying recent quizzes")
}

func (repo *studyRepository) SearchQuizzes(ctx context.Context, userID int, q string, limit int) ([]study.Quiz, error) {
	query := `SELECT ` + quizCols + ` FROM quiz
	WHERE user_id = $1 AND (title ILIKE $2 OR topic ILIKE $2)
	ORDER BY created_at DESC
	LIMIT $3`

	quizzes := make([]study.Quiz, 0)
	err := repo.db.SelectContext(ctx, &quizzes, query, userID, "%"+q+"%", limit)
	return quizzes, errors.Wrap(err, "searching quizzes")
}

func (repo *studyRepository) CreateSession(ctx context.Context, session study.StudySession) (study.StudySession, error) {
	query := `
	INSERT INTO study_session (user_id, session_type, topic, items_studied, correct_answers, accuracy, duration_minutes, completed_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	RETURNING id`
	err := repo.db.QueryRowxContext(ctx, query,
		session.UserID, session.SessionType, session.Topic, session.ItemsStudied,
		session.CorrectAnswers, session.Accuracy, session.DurationMinutes, session.CompletedAt,
	).Scan(&session.ID)
	return session, errors.Wrap(err, "inserting study session")
}

func (repo *studyRepository) QuerySessions(ctx context.Context, userID int, since time.Time, limit int) ([]study.StudySession, error) {
	query := `
	SELECT id, user_id, session_type, topic, items_studied, correct_answers, accuracy, duration_minutes, completed_at
	FROM study_session
	WHERE user_id = $1 AND completed_at >= $2
	ORDER BY completed_at DESC
	LIMIT $3`

	sessions := make([]study.StudySession, 0)
	err := repo.db.SelectContext(ctx, &sessions, query, userID, since, limit)
	return sessions, errors.Wrap(err, "querying study sessions")
}

const progressCols = `id, user_id, topic, total_study_time, sessions_completed, average_score, streak_days, last_study_date`

func (repo *studyRepository) GetTopicProgress(ctx context.Context, userID int, topic string) (study.TopicProgress, error) {
	var progress study.TopicProgress
	query := `SELECT ` + progressCols + ` FROM topic_progress WHERE user_id = $1 AND topic = $2`
	err := repo.db.GetContext(ctx, &progress, query, userID, topic)
	if err == sql.ErrNoRows {
		return study.TopicProgress{}, study.ErrProgressNotFound
	}
	return progress, errors.Wrap(err, "getting topic progress")
}

func (repo *studyRepository) UpsertTopicProgress(ctx context.Context, progress study.TopicProgress) error {
	query := `
	INSERT INTO topic_progress (user_id, topic, total_study_time, sessions_completed, average_score, streak_days, last_study_date)
	VALUES (:user_id, :topic, :total_study_time, :sessions_completed, :average_score, :streak_days, :last_study_date)
	ON CONFLICT (user_id, topic) DO UPDATE
	SET total_study_time = EXCLUDED.total_study_time,
		sessions_completed = EXCLUDED.sessions_completed,
		average_score = EXCLUDED.average_score,
		streak_days = EXCLUDED.streak_days,
		last_study_date = EXCLUDED.last_study_date`

	_, err := repo.db.NamedExecContext(ctx, query, progress)
	return errors.Wrap(err, "upserting topic progress")
}

func (repo *studyRepository) QueryTopicProgress(ctx context.Context, userID int) ([]study.TopicProgress, error) {
	query := `SELECT ` + progressCols + ` FROM topic_progress WHERE user_id = $1 ORDER BY total_study_time DESC`
	progress := make([]study.TopicProgress, 0)
	err := repo.db.SelectContext(ctx, &progress, query, userID)
	return progress, errors.Wrap(err, "querying topic progress")
}

func (repo *studyRepository) QueryTopicStats(ctx context.Context, userID int) ([]study.TopicStat, error) {
	query := `
	SELECT t.topic,
	       COALESCE(fc.cnt, 0) AS flashcard_count,
	       COALESCE(qz.cnt, 0) AS quiz_count,
	       COALESCE(tp.total_study_time, 0) AS study_time,
	       COALESCE(tp.average_score, 0) AS average_score
	FROM (
		SELECT topic FROM flashcard WHERE user_id = $1
		UNION
		SELECT topic FROM quiz WHERE user_id = $1
		UNION
		SELECT topic FROM topic_progress WHERE user_id = $1
	) t
	LEFT JOIN (SELECT topic, COUNT(*) AS cnt FROM flashcard WHERE user_id = $1 GROUP BY topic) fc ON fc.topic = t.topic
	LEFT JOIN (SELECT topic, COUNT(*) AS cnt FROM quiz WHERE user_id = $1 GROUP BY topic) qz ON qz.topic = t.topic
	LEFT JOIN topic_progress tp ON tp.user_id = $1 AND tp.topic = t.topic
	WHERE t.topic <> ''
	ORDER BY COALESCE(tp.total_study_time, 0) DESC, t.topic`

	stats := make([]study.TopicStat, 0)
	err := repo.db.SelectContext(ctx, &stats, query, userID)
	return stats, errors.Wrap(err, "querying topic stats")
}
