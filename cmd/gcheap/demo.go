package main

import (
	"fmt"
	"io"
	"os"
	"unsafe"

	"github.com/gcheap-org/gcheap"
)

// The demo object graph: a student list whose nodes reference students,
// which in turn hold lists of attended lectures. All cross references are
// managed pointers with offsets declared in the type descriptors below;
// names are stored inline so the payloads have no unmanaged pointers.

type student struct {
	lectures *lectureNode
	id       int32
	name     [40]byte
}

type lecture struct {
	id       int32
	semester int32
	name     [40]byte
}

type studentNode struct {
	next    *studentNode
	student *student
}

type lectureNode struct {
	next    *lectureNode
	lecture *lecture
}

type studentList struct {
	first *studentNode
}

var (
	studentType = gcheap.MustNewType("student", unsafe.Sizeof(student{}),
		destroyNamed("student"),
		int(unsafe.Offsetof(student{}.lectures)))

	lectureType = gcheap.MustNewType("lecture", unsafe.Sizeof(lecture{}),
		destroyNamed("lecture"))

	studentNodeType = gcheap.MustNewType("studentNode", unsafe.Sizeof(studentNode{}),
		nil,
		int(unsafe.Offsetof(studentNode{}.next)),
		int(unsafe.Offsetof(studentNode{}.student)))

	lectureNodeType = gcheap.MustNewType("lectureNode", unsafe.Sizeof(lectureNode{}),
		nil,
		int(unsafe.Offsetof(lectureNode{}.next)),
		int(unsafe.Offsetof(lectureNode{}.lecture)))

	studentListType = gcheap.MustNewType("studentList", unsafe.Sizeof(studentList{}),
		nil,
		int(unsafe.Offsetof(studentList{}.first)))
)

// demoOut receives destructor messages; main points it at the colorable
// stdout before the demo runs.
var demoOut io.Writer = os.Stdout

// destroyNamed builds a destructor that reports the collected object.
// Destructors must not touch the heap, so this only prints.
func destroyNamed(kind string) func(unsafe.Pointer) {
	return func(obj unsafe.Pointer) {
		fmt.Fprintf(demoOut, "%scollected %s at %#x%s\n", colorRed, kind, uintptr(obj), colorReset)
	}
}

func (l *studentList) add(h *gcheap.Heap, s *student) {
	node := mustAlloc[studentNode](h, studentNodeType)
	node.next = l.first
	node.student = s
	l.first = node
}

func (l *studentList) remove(s *student) {
	var prev *studentNode
	for it := l.first; it != nil; it = it.next {
		if it.student == s {
			if prev != nil {
				prev.next = it.next
			} else {
				l.first = it.next
			}
			continue
		}
		prev = it
	}
}

func (s *student) add(h *gcheap.Heap, l *lecture) {
	node := mustAlloc[lectureNode](h, lectureNodeType)
	node.next = s.lectures
	node.lecture = l
	s.lectures = node
}

func (s *student) remove(l *lecture) {
	var prev *lectureNode
	for it := s.lectures; it != nil; it = it.next {
		if it.lecture == l {
			if prev != nil {
				prev.next = it.next
			} else {
				s.lectures = it.next
			}
			continue
		}
		prev = it
	}
}

func newStudent(h *gcheap.Heap, id int32, name string) *student {
	s := mustAlloc[student](h, studentType)
	s.id = id
	copy(s.name[:], name)
	return s
}

func newLecture(h *gcheap.Heap, id int32, name string, semester int32) *lecture {
	l := mustAlloc[lecture](h, lectureType)
	l.id = id
	l.semester = semester
	copy(l.name[:], name)
	return l
}

func mustAlloc[T any](h *gcheap.Heap, t *gcheap.TypeDescriptor) *T {
	obj, err := gcheap.AllocateAs[T](h, t, false)
	if err != nil {
		fmt.Fprintln(os.Stderr, "gcheap:", err)
		os.Exit(1)
	}
	return obj
}

func runDemo(h *gcheap.Heap, out io.Writer) {
	section(out, "Heap after creation without anything allocated yet:")
	h.Dump(out)

	list := mustAlloc[studentList](h, studentListType)
	h.RegisterRoot(unsafe.Pointer(list))

	ssw := newLecture(h, 1, "System Software", 7)
	popl := newLecture(h, 2, "Principles of Programming Languages", 7)
	re := newLecture(h, 3, "Requirements Engineering", 7)

	peter := newStudent(h, 1, "Peter")
	list.add(h, peter)
	florian := newStudent(h, 2, "Florian")
	list.add(h, florian)
	daniel := newStudent(h, 3, "Daniel")

	peter.add(h, ssw)
	peter.add(h, popl)
	peter.add(h, re)
	florian.add(h, popl)
	florian.add(h, re)
	daniel.add(h, ssw)
	daniel.add(h, re)

	list.add(h, daniel)

	section(out, "Heap after allocating some objects, all still alive:")
	h.Dump(out)

	list.remove(daniel)
	peter.remove(ssw)
	section(out, "Heap after some objects died, but before garbage collection:")
	h.Dump(out)

	h.GC()
	section(out, "Heap after garbage collection:")
	h.Dump(out)

	h.RemoveRoot(unsafe.Pointer(list))
	h.GC()
	section(out, "Heap after removing the single root pointer and performing GC:")
	h.Dump(out)
}
