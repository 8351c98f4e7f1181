package store

import (
	"context"
	"slices"

	"github.com/Joseda-hg/kairo/internal/model"
)

type MeetingsState struct {
	Meetings     []model.Meeting
	Current      *model.Meeting
	Transcript   *model.Transcript
	Summary      *model.MeetingSummary
	RelatedTasks []model.Task
	Stats        *model.MeetingStats
	Pagination   model.Pagination
	SyncResult   *model.MeetingSyncResult
	Loading      bool
	Syncing      bool
	Processing   bool
	Error        string
}

func newMeetingsState() MeetingsState {
	return MeetingsState{
		Meetings:     []model.Meeting{},
		RelatedTasks: []model.Task{},
		Pagination:   model.Pagination{Page: 1, PerPage: 20},
	}
}

func (s *Store) MeetingsSnapshot() MeetingsState {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.meetings
	out.Meetings = slices.Clone(s.meetings.Meetings)
	out.RelatedTasks = slices.Clone(s.meetings.RelatedTasks)
	return out
}

func (s *Store) FetchMeetings(ctx context.Context, filter model.MeetingFilter) error {
	s.update(func() {
		s.meetings.Loading = true
		s.meetings.Error = ""
	})
	list, err := s.backend.ListMeetings(ctx, filter)
	s.update(func() {
		s.meetings.Loading = false
		if err != nil {
			s.meetings.Error = errorText(err)
			return
		}
		s.meetings.Meetings = list.Meetings
		if list.Pagination != (model.Pagination{}) {
			s.meetings.Pagination = list.Pagination
		}
	})
	return err
}

func (s *Store) FetchMeeting(ctx context.Context, id model.ID) error {
	s.update(func() {
		s.meetings.Loading = true
		s.meetings.Error = ""
	})
	meeting, err := s.backend.GetMeeting(ctx, id)
	s.update(func() {
		s.meetings.Loading = false
		if err != nil {
			s.meetings.Error = errorText(err)
			return
		}
		s.meetings.Current = &meeting
	})
	return err
}

func (s *Store) FetchTranscript(ctx context.Context, id model.ID) error {
	s.update(func() {
		s.meetings.Loading = true
		s.meetings.Error = ""
	})
	transcript, err := s.backend.Transcript(ctx, id)
	s.update(func() {
		s.meetings.Loading = false
		if err != nil {
			s.meetings.Error = errorText(err)
			return
		}
		s.meetings.Transcript = &transcript
	})
	return err
}

func (s *Store) FetchSummary(ctx context.Context, id model.ID) error {
	s.update(func() {
		s.meetings.Loading = true
		s.meetings.Error = ""
	})
	summary, err := s.backend.Summary(ctx, id)
	s.update(func() {
		s.meetings.Loading = false
		if err != nil {
			s.meetings.Error = errorText(err)
			return
		}
		s.meetings.Summary = &summary
	})
	return err
}

func (s *Store) SyncMeetings(ctx context.Context) (model.MeetingSyncResult, error) {
	s.update(func() {
		s.meetings.Syncing = true
		s.meetings.Error = ""
	})
	result, err := s.backend.SyncMeetings(ctx)
	s.update(func() {
		s.meetings.Syncing = false
		if err != nil {
			s.meetings.Error = errorText(err)
			return
		}
		s.meetings.SyncResult = &result
	})
	return result, err
}

// ProcessMeeting starts server-side processing. On success the listed meeting
// is shown as processing until the next fetch says otherwise.
func (s *Store) ProcessMeeting(ctx context.Context, id model.ID) error {
	s.update(func() {
		s.meetings.Processing = true
		s.meetings.Error = ""
	})
	err := s.backend.ProcessMeeting(ctx, id)
	s.update(func() {
		s.meetings.Processing = false
		if err != nil {
			s.meetings.Error = errorText(err)
			return
		}
		for i := range s.meetings.Meetings {
			if s.meetings.Meetings[i].ID == id {
				s.meetings.Meetings[i].ProcessingStatus = model.MeetingProcessing
			}
		}
	})
	return err
}

// FetchStats leaves the error field alone; stats are decorative.
func (s *Store) FetchStats(ctx context.Context) error {
	stats, err := s.backend.MeetingStats(ctx)
	if err != nil {
		return err
	}
	s.update(func() { s.meetings.Stats = &stats })
	return nil
}

func (s *Store) FetchTasksFromMeeting(ctx context.Context, id model.ID) error {
	s.update(func() {
		s.meetings.Loading = true
		s.meetings.Error = ""
	})
	tasks, err := s.backend.TasksFromMeeting(ctx, id)
	s.update(func() {
		s.meetings.Loading = false
		if err != nil {
			s.meetings.Error = errorText(err)
			return
		}
		s.meetings.RelatedTasks = tasks
	})
	return err
}

// SetPagination merges the non-zero fields of p into the current pagination.
func (s *Store) SetPagination(p model.Pagination) {
	s.update(func() {
		if p.Page > 0 {
			s.meetings.Pagination.Page = p.Page
		}
		if p.PerPage > 0 {
			s.meetings.Pagination.PerPage = p.PerPage
		}
		if p.Pages > 0 {
			s.meetings.Pagination.Pages = p.Pages
		}
		if p.Total > 0 {
			s.meetings.Pagination.Total = p.Total
		}
	})
}

func (s *Store) ClearCurrentMeeting() {
	s.update(func() {
		s.meetings.Current = nil
		s.meetings.Transcript = nil
		s.meetings.Summary = nil
		s.meetings.RelatedTasks = []model.Task{}
	})
}

func (s *Store) ClearMeetingsError() {
	s.update(func() { s.meetings.Error = "" })
}
